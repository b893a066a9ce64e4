// Package lut manages the address lookup table that compresses the
// fleet's account references in versioned transactions: on-chain
// create/extend, state decode, and write-once persistence of the table
// address.
package lut

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/solfleet/pumpfleet/pkg/config"
	"github.com/solfleet/pumpfleet/pkg/constants"
	"github.com/solfleet/pumpfleet/pkg/fleet"
	"github.com/solfleet/pumpfleet/pkg/jito"
	"github.com/solfleet/pumpfleet/pkg/rpc"
	"github.com/solfleet/pumpfleet/pkg/submit"
	"github.com/solfleet/pumpfleet/pkg/types"
)

// Table is an immutable snapshot of an on-chain lookup table. Extending
// produces a new snapshot; nothing mutates one in place.
type Table struct {
	Address   solana.PublicKey
	Addresses solana.PublicKeySlice
}

// Contains reports whether the table already carries the address.
func (t *Table) Contains(addr solana.PublicKey) bool {
	for _, a := range t.Addresses {
		if a.Equals(addr) {
			return true
		}
	}
	return false
}

// AsMap shapes the table for transaction compilation.
func (t *Table) AsMap() map[solana.PublicKey]solana.PublicKeySlice {
	return map[solana.PublicKey]solana.PublicKeySlice{t.Address: t.Addresses}
}

// stateMetadataLen is the fixed header of a lookup table account;
// addresses follow as packed 32-byte keys.
const stateMetadataLen = 56

// DeriveTableAddress computes the table PDA for an authority and the
// slot the create instruction references.
func DeriveTableAddress(authority solana.PublicKey, slot uint64) (solana.PublicKey, uint8, error) {
	slotBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(slotBytes, slot)
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{authority.Bytes(), slotBytes},
		constants.AddressLookupTableProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive lookup table address: %w", err)
	}
	return addr, bump, nil
}

// BuildCreateInstruction encodes the program's create instruction:
// u32 index, u64 recent slot, u8 bump.
func BuildCreateInstruction(table, authority, payer solana.PublicKey, slot uint64, bump uint8) solana.Instruction {
	data := make([]byte, 13)
	binary.LittleEndian.PutUint32(data[0:4], constants.LookupTableCreateIndex)
	binary.LittleEndian.PutUint64(data[4:12], slot)
	data[12] = bump

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(table, true, false),
		solana.NewAccountMeta(authority, false, true),
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(constants.SystemProgramID, false, false),
	}
	return solana.NewInstruction(constants.AddressLookupTableProgramID, metas, data)
}

// BuildExtendInstruction encodes the program's extend instruction:
// u32 index, u64 address count, then the raw 32-byte keys.
func BuildExtendInstruction(table, authority, payer solana.PublicKey, addrs []solana.PublicKey) solana.Instruction {
	data := make([]byte, 12+32*len(addrs))
	binary.LittleEndian.PutUint32(data[0:4], constants.LookupTableExtendIndex)
	binary.LittleEndian.PutUint64(data[4:12], uint64(len(addrs)))
	for i, a := range addrs {
		copy(data[12+32*i:], a.Bytes())
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(table, true, false),
		solana.NewAccountMeta(authority, false, true),
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(constants.SystemProgramID, false, false),
	}
	return solana.NewInstruction(constants.AddressLookupTableProgramID, metas, data)
}

// DecodeAddresses parses the address list out of raw table account data.
func DecodeAddresses(data []byte) (solana.PublicKeySlice, error) {
	if len(data) < stateMetadataLen {
		return nil, fmt.Errorf("lookup table account too short: %d bytes", len(data))
	}
	body := data[stateMetadataLen:]
	if len(body)%32 != 0 {
		return nil, fmt.Errorf("lookup table address region not 32-byte aligned: %d bytes", len(body))
	}
	out := make(solana.PublicKeySlice, 0, len(body)/32)
	for i := 0; i+32 <= len(body); i += 32 {
		out = append(out, solana.PublicKeyFromBytes(body[i:i+32]))
	}
	return out, nil
}

// ChainClient is the blockchain-access slice the manager consumes.
type ChainClient interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.Account, error)
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetSlot(ctx context.Context, commitment solanarpc.CommitmentType) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (rpc.Blockhash, error)
}

// Deliverer submits a prepared transaction through the delivery
// pipeline.
type Deliverer interface {
	Deliver(ctx context.Context, prep submit.Prepared, useBundle bool) (submit.Result, error)
}

// Manager owns the fleet's single lookup table.
type Manager struct {
	chain   ChainClient
	deliver Deliverer
	payer   fleet.Signer
	cfg     config.BotConfig
	log     zerolog.Logger
}

// NewManager wires a lookup table manager. The payer is both the table
// authority and the fee payer.
func NewManager(chain ChainClient, deliver Deliverer, payer fleet.Signer, cfg config.BotConfig, log zerolog.Logger) *Manager {
	return &Manager{chain: chain, deliver: deliver, payer: payer, cfg: cfg, log: log}
}

type tableFile struct {
	Address string `json:"address"`
}

// Load returns the persisted table with its current on-chain address
// list, or nil when no table exists yet. A persisted address whose
// account has vanished also reads as absent.
func (m *Manager) Load(ctx context.Context) (*Table, error) {
	data, err := os.ReadFile(m.cfg.LUTFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lookup table file: %w", err)
	}

	var tf tableFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("decode lookup table file: %w", err)
	}
	addr, err := solana.PublicKeyFromBase58(tf.Address)
	if err != nil {
		return nil, fmt.Errorf("decode lookup table address: %w", err)
	}

	return m.fetch(ctx, addr)
}

func (m *Manager) fetch(ctx context.Context, addr solana.PublicKey) (*Table, error) {
	acc, err := m.chain.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fetch lookup table: %w", err)
	}
	if acc == nil || acc.Data == nil {
		return nil, nil
	}
	addrs, err := DecodeAddresses(acc.Data.GetBinary())
	if err != nil {
		return nil, err
	}
	return &Table{Address: addr, Addresses: addrs}, nil
}

// minCreateBalance is the payer floor for a create: rent for the table
// account plus the relay tip plus fee headroom.
func (m *Manager) minCreateBalance() uint64 {
	return m.cfg.TipLamports + 5_000_000
}

// Create makes a new on-chain table, persists its address write-once,
// waits out the settle window, and confirms the account is readable
// before extending it with the initial address set.
func (m *Manager) Create(ctx context.Context, addresses []solana.PublicKey) (*Table, error) {
	if _, err := os.Stat(m.cfg.LUTFile); err == nil {
		return nil, fmt.Errorf("lookup table file %s already exists: %w", m.cfg.LUTFile, os.ErrExist)
	}

	payerKey := m.payer.PublicKey()
	balance, err := m.chain.GetBalance(ctx, payerKey)
	if err != nil {
		return nil, fmt.Errorf("payer balance: %w", err)
	}
	if balance < m.minCreateBalance() {
		return nil, fmt.Errorf("payer %s holds %d lamports: %w", payerKey, balance, types.ErrInsufficientFunds)
	}

	slot, err := m.chain.GetSlot(ctx, solanarpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("fetch slot: %w", err)
	}
	// Step back so the referenced slot is already in SlotHashes by the
	// time the transaction lands.
	if slot > 20 {
		slot -= 20
	}

	table, bump, err := DeriveTableAddress(payerKey, slot)
	if err != nil {
		return nil, err
	}

	ixs := []solana.Instruction{
		BuildCreateInstruction(table, payerKey, payerKey, slot, bump),
		system.NewTransferInstruction(m.cfg.TipLamports, payerKey, jito.RandomTipAccount()).Build(),
	}
	prep, err := m.prepare(ctx, ixs, "lut-create")
	if err != nil {
		return nil, err
	}
	if _, err := m.deliver.Deliver(ctx, prep, true); err != nil {
		return nil, fmt.Errorf("create lookup table: %w", err)
	}

	if err := m.persist(table); err != nil {
		return nil, err
	}
	m.log.Info().Stringer("table", table).Msg("lookup table created")

	// A fresh table is not immediately readable by downstream RPCs.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.cfg.LUTSettleDelay):
	}

	err = submit.PollUntil(ctx, m.cfg.LUTPollInterval, m.cfg.LUTPollDeadline, func(ctx context.Context) (bool, error) {
		acc, err := m.chain.GetAccountInfo(ctx, table)
		if err != nil {
			return false, nil
		}
		return acc != nil && acc.Data != nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("lookup table %s: %w", table, types.ErrTableNotRetrievable)
	}

	return m.Extend(ctx, &Table{Address: table}, addresses)
}

// Extend appends the missing addresses in chunks, skipping any that the
// table already holds and truncating at the on-chain capacity. The tip
// rides only on the final chunk. Returns the refreshed snapshot.
func (m *Manager) Extend(ctx context.Context, table *Table, addresses []solana.PublicKey) (*Table, error) {
	missing := make([]solana.PublicKey, 0, len(addresses))
	for _, a := range addresses {
		if !table.Contains(a) {
			missing = append(missing, a)
		}
	}
	if len(missing) == 0 {
		return table, nil
	}

	room := constants.MaxLookupTableEntries - len(table.Addresses)
	if room <= 0 {
		m.log.Warn().Stringer("table", table.Address).Msg("lookup table full, nothing extended")
		return table, nil
	}
	if len(missing) > room {
		m.log.Warn().
			Stringer("table", table.Address).
			Int("dropped", len(missing)-room).
			Msg("lookup table capacity reached, truncating extension")
		missing = missing[:room]
	}

	payerKey := m.payer.PublicKey()
	for start := 0; start < len(missing); start += constants.LookupTableExtendChunk {
		end := start + constants.LookupTableExtendChunk
		if end > len(missing) {
			end = len(missing)
		}
		chunk := missing[start:end]

		ixs := []solana.Instruction{
			BuildExtendInstruction(table.Address, payerKey, payerKey, chunk),
		}
		if end == len(missing) {
			ixs = append(ixs, system.NewTransferInstruction(m.cfg.TipLamports, payerKey, jito.RandomTipAccount()).Build())
		}

		prep, err := m.prepare(ctx, ixs, fmt.Sprintf("lut-extend-%d", start/constants.LookupTableExtendChunk))
		if err != nil {
			return nil, err
		}
		if _, err := m.deliver.Deliver(ctx, prep, true); err != nil {
			// A rejected chunk does not poison the rest.
			m.log.Warn().
				Stringer("table", table.Address).
				Int("offset", start).
				Err(err).
				Msg("extend chunk failed, continuing")
			continue
		}
		m.log.Info().
			Stringer("table", table.Address).
			Int("added", len(chunk)).
			Msg("lookup table extended")
	}

	refreshed, err := m.fetch(ctx, table.Address)
	if err != nil {
		return nil, err
	}
	if refreshed == nil {
		return nil, fmt.Errorf("lookup table %s: %w", table.Address, types.ErrTableNotRetrievable)
	}
	return refreshed, nil
}

func (m *Manager) prepare(ctx context.Context, ixs []solana.Instruction, label string) (submit.Prepared, error) {
	build := func(ctx context.Context, bh rpc.Blockhash) (*solana.Transaction, error) {
		tx, err := solana.NewTransaction(ixs, bh.Hash, solana.TransactionPayer(m.payer.PublicKey()))
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", label, err)
		}
		if err := fleet.SignTransaction(ctx, tx, m.payer); err != nil {
			return nil, err
		}
		return tx, nil
	}

	bh, err := m.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return submit.Prepared{}, fmt.Errorf("fetch blockhash: %w", err)
	}
	tx, err := build(ctx, bh)
	if err != nil {
		return submit.Prepared{}, err
	}
	return submit.Prepared{Tx: tx, Blockhash: bh, Label: label, Rebuild: build}, nil
}

func (m *Manager) persist(addr solana.PublicKey) error {
	data, err := json.MarshalIndent(tableFile{Address: addr.String()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode lookup table file: %w", err)
	}
	if err := os.WriteFile(m.cfg.LUTFile, data, 0o600); err != nil {
		return fmt.Errorf("write lookup table file: %w", err)
	}
	return nil
}
