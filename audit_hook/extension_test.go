package audithook_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow"
	audithook "github.com/xraph/escrow/audit_hook"
	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

var user = types.MustParseAddress("0x00000000000000000000000000000000000000a1")

func collect() (*[]*audithook.AuditEvent, audithook.RecorderFunc) {
	var events []*audithook.AuditEvent
	return &events, func(_ context.Context, e *audithook.AuditEvent) error {
		events = append(events, e)
		return nil
	}
}

func TestRecordsEscrowEvents(t *testing.T) {
	events, rec := collect()
	ext := audithook.New(rec)
	ctx := context.Background()

	require.NoError(t, ext.OnEscrowDeposit(ctx, &event.EscrowDeposit{
		User: user, Amount: types.NewAmount(10), NewBalance: types.NewAmount(15),
	}))
	require.NoError(t, ext.OnSubscriptionDeactivated(ctx, &subscription.Subscription{
		ID: 7, PlanID: 2, Subscriber: user,
	}))

	require.Len(t, *events, 2)

	dep := (*events)[0]
	assert.Equal(t, audithook.ActionEscrowDeposit, dep.Action)
	assert.Equal(t, audithook.OutcomeSuccess, dep.Outcome)
	assert.Equal(t, user.Hex(), dep.Actor)
	assert.Equal(t, "15", dep.Metadata["new_balance"])

	deact := (*events)[1]
	assert.Equal(t, audithook.ActionSubscriptionDeactivated, deact.Action)
	assert.Equal(t, "7", deact.ResourceID)
	assert.Equal(t, audithook.SeverityWarning, deact.Severity)
	assert.Equal(t, audithook.OutcomeFailure, deact.Outcome)
}

func TestCallFailedSeverity(t *testing.T) {
	events, rec := collect()
	ext := audithook.New(rec)
	ctx := context.Background()

	require.NoError(t, ext.OnCallFailed(ctx, "create_plan", user, escrow.ErrProviderNotRegistered))
	require.NoError(t, ext.OnCallFailed(ctx, "withdraw", user, escrow.ErrInsufficientBalance))

	require.Len(t, *events, 2)
	assert.Equal(t, audithook.SeverityError, (*events)[0].Severity)
	assert.Equal(t, "unauthorized", (*events)[0].Metadata["kind"])
	assert.Equal(t, audithook.SeverityWarning, (*events)[1].Severity)
	assert.Equal(t, "withdraw", (*events)[1].ResourceID)
}

func TestActionFilters(t *testing.T) {
	events, rec := collect()
	ext := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionEscrowDeposit))
	ctx := context.Background()

	require.NoError(t, ext.OnEscrowDeposit(ctx, &event.EscrowDeposit{User: user}))
	require.NoError(t, ext.OnEscrowWithdrawal(ctx, &event.EscrowWithdrawal{User: user}))

	require.Len(t, *events, 1)
	assert.Equal(t, audithook.ActionEscrowWithdrawal, (*events)[0].Action)
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	assert.NoError(t, ext.OnPlanCreated(context.Background(), &event.PlanCreated{PlanID: 1}))
}

func TestEnabledActions(t *testing.T) {
	events, rec := collect()
	ext := audithook.New(rec, audithook.WithEnabledActions(audithook.ActionCallRejected))
	ctx := context.Background()

	require.NoError(t, ext.OnProviderRegistered(ctx, &event.ProviderRegistered{Provider: user, Name: "acme"}))
	require.NoError(t, ext.OnCallFailed(ctx, "subscribe", user, escrow.ErrPlanNotFound))

	require.Len(t, *events, 1)
	assert.Equal(t, "not_found", (*events)[0].Metadata["kind"])
	assert.Len(t, audithook.AllActions(), 9)
}
