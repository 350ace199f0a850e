package genesis

import (
	"math/big"
	"os"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/avatolabs/go-olympus/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Spec is the chain origin description. Two nodes parsing the same
// spec produce byte-identical genesis blocks, so the spec file is the
// only thing peers need to share ahead of time.
type Spec struct {
	ChainID   uint64            `json:"chainId"`
	Timestamp int64             `json:"timestamp"`
	GasLimit  uint64            `json:"gasLimit,omitempty"`
	Alloc     map[string]string `json:"alloc,omitempty"`
}

// Allocation is one minted balance. The mint transaction payload is the
// msgpack encoding of all allocations in ascending address order.
type Allocation struct {
	Address types.Address `msgpack:"a"`
	Balance types.U256    `msgpack:"b"`
}

func LoadSpec(path string) (*Spec, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading genesis spec")
	}

	return ParseSpec(d)
}

// ParseSpec decodes and fully validates a JSON spec, including every
// allocation entry, so construction cannot fail later.
func ParseSpec(d []byte) (*Spec, error) {
	s := &Spec{}
	if err := json.Unmarshal(d, s); err != nil {
		return nil, errors.Wrap(err, "parsing genesis spec")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Spec) Validate() error {
	if s.ChainID == 0 {
		return errors.New("genesis spec requires a chain id")
	}
	if s.Timestamp <= 0 {
		return errors.New("genesis spec requires a timestamp")
	}

	_, err := s.Allocations()
	return err
}

func (s *Spec) Encode() ([]byte, error) {
	d, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding genesis spec")
	}

	return d, nil
}

// Allocations parses the alloc map into ascending address order.
// Addresses are hex with an optional 0x prefix; balances are decimal.
func (s *Spec) Allocations() ([]Allocation, error) {
	allocs := make([]Allocation, 0, len(s.Alloc))

	for addr, bal := range s.Alloc {
		a, err := types.AddressFromHex(strings.TrimPrefix(addr, "0x"))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing alloc address %q", addr)
		}

		b, ok := new(big.Int).SetString(bal, 10)
		if !ok || b.Sign() < 0 {
			return nil, errors.Errorf("parsing alloc balance %q for %s", bal, addr)
		}

		v, err := types.U256FromBig(b)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing alloc balance for %s", addr)
		}

		allocs = append(allocs, Allocation{Address: a, Balance: v})
	}

	sort.Slice(allocs, func(i, j int) bool {
		return string(allocs[i].Address[:]) < string(allocs[j].Address[:])
	})

	return allocs, nil
}

// Mint builds the unsigned allocation transaction. Its payload carries
// the sorted allocations and its value is the total minted, so the same
// spec always yields the same transaction hash.
func (s *Spec) Mint() (*types.Transaction, error) {
	allocs, err := s.Allocations()
	if err != nil {
		return nil, err
	}
	if len(allocs) == 0 {
		return nil, errors.New("genesis spec has no allocations")
	}

	var total types.U256
	for i := range allocs {
		if _, overflow := total.AddOverflow(&total.Int, &allocs[i].Balance.Int); overflow {
			return nil, errors.New("total allocation overflows 256 bits")
		}
	}

	payload, err := msgpack.Marshal(allocs)
	if err != nil {
		return nil, errors.Wrap(err, "encoding allocations")
	}

	return &types.Transaction{
		Value:   total,
		Payload: payload,
		ChainID: s.ChainID,
	}, nil
}

// DecodeAllocations recovers the minted balances from a mint
// transaction payload.
func DecodeAllocations(payload []byte) ([]Allocation, error) {
	var allocs []Allocation
	if err := msgpack.Unmarshal(payload, &allocs); err != nil {
		return nil, errors.Wrap(err, "decoding allocations")
	}

	return allocs, nil
}

// Build produces the parentless genesis block and the transactions it
// lists. A spec without allocations yields an empty block.
func (s *Spec) Build() (*types.Block, []*types.Transaction, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}

	b := &types.Block{Timestamp: s.Timestamp}

	if len(s.Alloc) == 0 {
		return b, nil, nil
	}

	mint, err := s.Mint()
	if err != nil {
		return nil, nil, err
	}

	b.TxHashes = []types.Hash{mint.Hash()}

	return b, []*types.Transaction{mint}, nil
}
