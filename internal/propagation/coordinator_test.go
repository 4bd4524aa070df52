package propagation_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/example/refsim/internal/propagation"
	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/recalc"
	"github.com/example/refsim/internal/stream"
)

func TestPropagateRetireRechargeRecoverRunsFullChain(t *testing.T) {
	s := stream.NewStore(nil)
	key := stream.UseKey{Application: "Domestic Refrigeration", Substance: "HFC-134a"}
	s.Ensure(key)
	p, err := s.Params(key)
	require.NoError(t, err)
	p.InitialCharge[stream.SubDomestic] = quantity.New(decimal.NewFromInt(1), "kg")
	s.Enable(key, stream.SubDomestic)
	require.NoError(t, s.Set(key, stream.PriorEquipment, quantity.New(decimal.NewFromInt(1000), "unit")))
	require.NoError(t, s.Set(key, stream.Equipment, quantity.New(decimal.NewFromInt(1000), "unit")))

	coord := propagation.NewCoordinator(recalc.Kit{Store: s}, nil)
	target := recalc.Target{Key: key}
	require.NoError(t, coord.Propagate(context.Background(), propagation.MutationRetireRechargeRecover, target))

	// consumption recalc must have run as the chain's final step.
	_, err = s.Get(key, stream.Consumption)
	require.NoError(t, err)
}

func TestPropagateUnknownMutationKindIsANoOp(t *testing.T) {
	s := stream.NewStore(nil)
	coord := propagation.NewCoordinator(recalc.Kit{Store: s}, nil)
	err := coord.Propagate(context.Background(), propagation.MutationKind("unknown"), recalc.Target{})
	require.NoError(t, err)
}
