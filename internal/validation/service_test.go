package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdpgate/internal/domain"
	"gdpgate/internal/override"
	"gdpgate/internal/qualifier"
	"gdpgate/internal/ruledata"
	"gdpgate/internal/threshold"
	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/requestcontext"
)

var (
	now      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	customer = domain.CustomerKey{Account: "CUST-1", DataArea: "de01"}
)

type fixture struct {
	service   *Service
	rules     *ruledata.MemoryStore
	overrides *override.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rules := ruledata.NewMemoryStore()
	overrides := override.NewMemoryStore()
	overrideSvc := override.NewService(overrides, override.Config{
		ApproverRoles:        []domain.ApproverRole{domain.RoleComplianceManager, domain.RoleQAManager},
		RequireJustification: true,
		MinJustificationLen:  20,
	})
	svc := NewService(
		qualifier.New(rules, rules),
		threshold.New(rules),
		overrideSvc,
		Config{OverrideEligibleCodes: []domain.ViolationCode{domain.ViolationThresholdExceeded}},
	)
	return &fixture{service: svc, rules: rules, overrides: overrides}
}

func (f *fixture) approvedCustomer(substances ...string) {
	f.rules.PutProfile(ruledata.CustomerProfile{
		Customer:       customer,
		ApprovalStatus: ruledata.ApprovalApproved,
		GDPStatus:      ruledata.GDPQualified,
	})
	expiry := now.AddDate(1, 0, 0)
	f.rules.PutLicence(ruledata.Licence{
		Number:          "LIC-1",
		HolderType:      ruledata.HolderCustomer,
		HolderID:        customer.Account,
		Status:          ruledata.LicenceValid,
		ExpiryDate:      &expiry,
		SubstanceScopes: substances,
	})
}

func transaction(externalID string, qty float64) *domain.Transaction {
	return &domain.Transaction{
		ExternalID:         externalID,
		Type:               domain.TransactionOrder,
		Direction:          domain.DirectionOutbound,
		Customer:           customer,
		OriginCountry:      "DE",
		DestinationCountry: "FR",
		Lines: []domain.TransactionLine{{
			ItemID:        "ITEM-1",
			SubstanceCode: "EPH",
			Quantity:      qty,
			UnitOfMeasure: "kg",
		}},
	}
}

func pinnedCtx() context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func codesOf(violations []domain.Violation) []domain.ViolationCode {
	out := make([]domain.ViolationCode, len(violations))
	for i, v := range violations {
		out[i] = v.Code
	}
	return out
}

func TestValidate_AllClearIsValid(t *testing.T) {
	f := newFixture(t)
	f.approvedCustomer("EPH")
	f.rules.PutThreshold(ruledata.Threshold{
		ID: "THR-EPH", SubstanceCodes: []string{"EPH"}, Limit: 100, Unit: "kg",
	})

	verdict, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 50), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValid, verdict.Status)
	assert.Empty(t, verdict.Violations)
	assert.Empty(t, verdict.OverrideRequestID)
}

func TestValidate_SuspendedCustomerUnderThresholdIsInvalid(t *testing.T) {
	f := newFixture(t)
	f.approvedCustomer("EPH")
	f.rules.PutThreshold(ruledata.Threshold{
		ID: "THR-EPH", SubstanceCodes: []string{"EPH"}, Limit: 100, Unit: "kg",
	})
	profile := ruledata.CustomerProfile{
		Customer:       customer,
		ApprovalStatus: ruledata.ApprovalApproved,
		GDPStatus:      ruledata.GDPQualified,
		Suspended:      true,
	}
	f.rules.PutProfile(profile)

	verdict, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 50), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvalid, verdict.Status)
	assert.Equal(t, []domain.ViolationCode{domain.ViolationCustomerSuspended}, codesOf(verdict.Violations))
	assert.Empty(t, verdict.OverrideRequestID, "suspension is never override-eligible")
}

func TestValidate_EligibleExcessRequiresOverride(t *testing.T) {
	f := newFixture(t)
	f.approvedCustomer("EPH")
	f.rules.PutThreshold(ruledata.Threshold{
		ID: "THR-EPH", SubstanceCodes: []string{"EPH"}, Limit: 100, Unit: "kg",
		MaxOverridePercent: 30,
	})

	verdict, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 120), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverrideRequired, verdict.Status)
	assert.Equal(t, []domain.ViolationCode{domain.ViolationThresholdExceeded}, codesOf(verdict.Violations))
	require.NotEmpty(t, verdict.OverrideRequestID)

	id, err := override.ParseID(verdict.OverrideRequestID)
	require.NoError(t, err)
	req, err := f.overrides.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, override.StatePending, req.State)
	assert.Equal(t, "SO-1001", req.TransactionID)
}

func TestValidate_ExcessBeyondOverrideCapIsInvalid(t *testing.T) {
	f := newFixture(t)
	f.approvedCustomer("EPH")
	f.rules.PutThreshold(ruledata.Threshold{
		ID: "THR-EPH", SubstanceCodes: []string{"EPH"}, Limit: 100, Unit: "kg",
		MaxOverridePercent: 30,
	})

	verdict, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 140), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvalid, verdict.Status)
	assert.Empty(t, verdict.OverrideRequestID)
}

func TestValidate_RevalidationReturnsSameOverrideRequest(t *testing.T) {
	f := newFixture(t)
	f.approvedCustomer("EPH")
	f.rules.PutThreshold(ruledata.Threshold{
		ID: "THR-EPH", SubstanceCodes: []string{"EPH"}, Limit: 100, Unit: "kg",
		MaxOverridePercent: 30,
	})

	first, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 120), "")
	require.NoError(t, err)
	second, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 120), "")
	require.NoError(t, err)
	assert.Equal(t, first.OverrideRequestID, second.OverrideRequestID)
}

func TestValidate_ApprovedOverrideUpgradesVerdict(t *testing.T) {
	f := newFixture(t)
	f.approvedCustomer("EPH")
	f.rules.PutThreshold(ruledata.Threshold{
		ID: "THR-EPH", SubstanceCodes: []string{"EPH"}, Limit: 100, Unit: "kg",
		MaxOverridePercent: 30,
	})

	first, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 120), "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusOverrideRequired, first.Status)

	id, err := override.ParseID(first.OverrideRequestID)
	require.NoError(t, err)
	_, err = f.overrides.Execute(context.Background(), id,
		func(r *override.Request) error { return nil },
		func(r *override.Request) {
			r.ApplyApproval(domain.Actor{ID: "alice", Role: domain.RoleComplianceManager}, now)
		},
	)
	require.NoError(t, err)

	second, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 120), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverrideApproved, second.Status)
	assert.Equal(t, first.OverrideRequestID, second.OverrideRequestID)
}

func TestValidate_ShortJustificationFailsWithoutCreatingState(t *testing.T) {
	f := newFixture(t)
	f.approvedCustomer("EPH")
	f.rules.PutThreshold(ruledata.Threshold{
		ID: "THR-EPH", SubstanceCodes: []string{"EPH"}, Limit: 100, Unit: "kg",
		MaxOverridePercent: 30,
	})

	_, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 120), "too short")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = f.overrides.FindByTransaction(context.Background(), "SO-1001")
	require.Error(t, err, "a rejected justification must leave no request behind")
}

func TestValidate_WarningBandDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.approvedCustomer("EPH")
	f.rules.PutThreshold(ruledata.Threshold{
		ID: "THR-EPH", SubstanceCodes: []string{"EPH"}, Limit: 100, Unit: "kg",
		WarningPercent: 80,
	})

	verdict, err := f.service.Validate(pinnedCtx(), transaction("SO-1001", 85), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValid, verdict.Status)
	assert.True(t, verdict.WarningBand)
	require.Len(t, verdict.Violations, 1)
	assert.Equal(t, domain.WarningThresholdBand, verdict.Violations[0].Code)
}

func TestValidate_MalformedTransactionRejected(t *testing.T) {
	f := newFixture(t)
	tx := transaction("SO-1001", 50)
	tx.Lines = nil

	_, err := f.service.Validate(pinnedCtx(), tx, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

type unavailableStore struct {
	*ruledata.MemoryStore
}

func (unavailableStore) FindByCustomer(context.Context, domain.CustomerKey) (*ruledata.CustomerProfile, error) {
	return nil, dErrors.New(dErrors.CodeExternalUnavailable, "master data unreachable")
}

func TestValidate_UnavailableRuleSourceIsIndeterminate(t *testing.T) {
	rules := ruledata.NewMemoryStore()
	svc := NewService(
		qualifier.New(unavailableStore{rules}, rules),
		threshold.New(rules),
		override.NewService(override.NewMemoryStore(), override.Config{}),
		Config{OverrideEligibleCodes: []domain.ViolationCode{domain.ViolationThresholdExceeded}},
	)

	_, err := svc.Validate(pinnedCtx(), transaction("SO-1001", 50), "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExternalUnavailable))
	assert.Contains(t, err.Error(), "indeterminate")
}
