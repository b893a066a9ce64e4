package submit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/solfleet/pumpfleet/pkg/fleet"
	"github.com/solfleet/pumpfleet/pkg/rpc"
	"github.com/solfleet/pumpfleet/pkg/submit"
	"github.com/solfleet/pumpfleet/pkg/types"
)

type fakeChain struct {
	simErr      interface{}
	simLogs     []string
	sendErr     error
	sendCalls   int
	sig         solana.Signature
	confirmed   bool
	blockHeight uint64
}

func (f *fakeChain) SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts *solanarpc.SimulateTransactionOpts) (*solanarpc.SimulateTransactionResponse, error) {
	return &solanarpc.SimulateTransactionResponse{
		Value: &solanarpc.SimulateTransactionResult{Err: f.simErr, Logs: f.simLogs},
	}, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	f.sendCalls++
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return f.sig, nil
}

func (f *fakeChain) GetSignatureStatuses(ctx context.Context, sigs ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	if !f.confirmed {
		return &solanarpc.GetSignatureStatusesResult{Value: []*solanarpc.SignatureStatusesResult{nil}}, nil
	}
	return &solanarpc.GetSignatureStatusesResult{
		Value: []*solanarpc.SignatureStatusesResult{
			{ConfirmationStatus: solanarpc.ConfirmationStatusConfirmed},
		},
	}, nil
}

func (f *fakeChain) GetBlockHeight(ctx context.Context) (uint64, error) {
	return f.blockHeight, nil
}

func (f *fakeChain) GetLatestBlockhash(ctx context.Context) (rpc.Blockhash, error) {
	return rpc.Blockhash{LastValidBlockHeight: f.blockHeight + 150}, nil
}

type fakeRelay struct {
	sendErr   error
	sendCalls int
	bundleID  string
	status    string
}

func (f *fakeRelay) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	f.sendCalls++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.bundleID, nil
}

func (f *fakeRelay) GetBundleStatus(ctx context.Context, bundleID string) (string, error) {
	return f.status, nil
}

func testPrepared(t *testing.T) submit.Prepared {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w := fleet.FromPrivateKey(key)

	ix := system.NewTransferInstruction(1, w.PublicKey(), w.PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(w.PublicKey()))
	require.NoError(t, err)
	require.NoError(t, fleet.SignTransaction(context.Background(), tx, w))

	return submit.Prepared{Tx: tx, Blockhash: rpc.Blockhash{LastValidBlockHeight: 200}, Label: "test"}
}

func fastPolicies() (submit.Policy, submit.Policy) {
	bundle := submit.Policy{MaxAttempts: 3, Interval: 5 * time.Millisecond, Deadline: 100 * time.Millisecond}
	direct := submit.Policy{MaxAttempts: 2, Interval: 5 * time.Millisecond, Deadline: 100 * time.Millisecond}
	return bundle, direct
}

func TestDeliverDiscardsOnSimulationFailure(t *testing.T) {
	chain := &fakeChain{simErr: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}, simLogs: []string{"Program log: failed"}}
	relay := &fakeRelay{bundleID: "b1", status: "confirmed"}
	p := submit.NewPipeline(chain, relay, zerolog.Nop()).WithPolicies(fastPolicies())

	res, err := p.Deliver(context.Background(), testPrepared(t), true)
	require.Error(t, err)
	require.ErrorIs(t, err, types.ErrSimulationRejected)
	require.Equal(t, submit.StatusFailed, res.Status)

	var simErr *types.SimulationError
	require.ErrorAs(t, err, &simErr)
	require.NotEmpty(t, simErr.Logs)

	// a rejected transaction never reaches either delivery path
	require.Zero(t, relay.sendCalls)
	require.Zero(t, chain.sendCalls)
}

func TestDeliverBundleConfirmed(t *testing.T) {
	chain := &fakeChain{blockHeight: 100}
	relay := &fakeRelay{bundleID: "b1", status: "confirmed"}
	p := submit.NewPipeline(chain, relay, zerolog.Nop()).WithPolicies(fastPolicies())

	res, err := p.Deliver(context.Background(), testPrepared(t), true)
	require.NoError(t, err)
	require.Equal(t, submit.PathBundle, res.Path)
	require.Equal(t, submit.StatusConfirmed, res.Status)
	require.Equal(t, "b1", res.BundleID)
	require.Zero(t, chain.sendCalls)
}

func TestDeliverFallsBackToDirectWhenRelayUnreachable(t *testing.T) {
	chain := &fakeChain{blockHeight: 100, confirmed: true}
	relay := &fakeRelay{sendErr: errors.New("connection refused")}
	p := submit.NewPipeline(chain, relay, zerolog.Nop()).WithPolicies(fastPolicies())

	res, err := p.Deliver(context.Background(), testPrepared(t), true)
	require.NoError(t, err)
	require.Equal(t, submit.PathDirect, res.Path)
	require.Equal(t, submit.StatusConfirmed, res.Status)
	require.Equal(t, 1, chain.sendCalls)
}

func TestDeliverFallsBackWhenBundleNeverLands(t *testing.T) {
	chain := &fakeChain{blockHeight: 100, confirmed: true}
	relay := &fakeRelay{bundleID: "b1", status: ""} // forever pending
	p := submit.NewPipeline(chain, relay, zerolog.Nop()).WithPolicies(fastPolicies())

	res, err := p.Deliver(context.Background(), testPrepared(t), true)
	require.NoError(t, err)
	require.Equal(t, submit.PathDirect, res.Path)
	require.Equal(t, submit.StatusConfirmed, res.Status)
}

func TestDeliverDirectOnly(t *testing.T) {
	chain := &fakeChain{blockHeight: 100, confirmed: true}
	relay := &fakeRelay{bundleID: "b1", status: "confirmed"}
	p := submit.NewPipeline(chain, relay, zerolog.Nop()).WithPolicies(fastPolicies())

	res, err := p.Deliver(context.Background(), testPrepared(t), false)
	require.NoError(t, err)
	require.Equal(t, submit.PathDirect, res.Path)
	require.Zero(t, relay.sendCalls)
}

func TestDeliverDirectExhaustsRetries(t *testing.T) {
	chain := &fakeChain{blockHeight: 100, sendErr: errors.New("node behind")}
	p := submit.NewPipeline(chain, nil, zerolog.Nop()).WithPolicies(fastPolicies())

	res, err := p.Deliver(context.Background(), testPrepared(t), false)
	require.ErrorIs(t, err, types.ErrDeliveryFailed)
	require.Equal(t, submit.StatusFailed, res.Status)
	require.Equal(t, 2, chain.sendCalls)
}

func TestPollUntilTimesOut(t *testing.T) {
	err := submit.PollUntil(context.Background(), 5*time.Millisecond, 30*time.Millisecond,
		func(ctx context.Context) (bool, error) { return false, nil })
	require.ErrorIs(t, err, types.ErrConfirmationTimeout)
}

func TestPollUntilPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := submit.PollUntil(context.Background(), 5*time.Millisecond, time.Second,
		func(ctx context.Context) (bool, error) { return false, boom })
	require.ErrorIs(t, err, boom)
}

func TestPollUntilSucceeds(t *testing.T) {
	calls := 0
	err := submit.PollUntil(context.Background(), time.Millisecond, time.Second,
		func(ctx context.Context) (bool, error) {
			calls++
			return calls >= 3, nil
		})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}
