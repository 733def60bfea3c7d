package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Word is the EVM ABI word size.
const Word = 32

// MethodID returns the 4-byte selector for a canonical method signature.
func MethodID(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// PackCall encodes a method selector followed by 32-byte-padded static
// arguments. Supported argument types: common.Address, *big.Int, bool,
// uint16.
func PackCall(signature string, args ...any) ([]byte, error) {
	data := make([]byte, 0, 4+Word*len(args))
	data = append(data, MethodID(signature)...)

	for i, arg := range args {
		switch v := arg.(type) {
		case common.Address:
			data = append(data, common.LeftPadBytes(v.Bytes(), Word)...)
		case *big.Int:
			if v.Sign() < 0 || v.BitLen() > 256 {
				return nil, fmt.Errorf("argument %d out of uint256 range", i)
			}
			data = append(data, common.LeftPadBytes(v.Bytes(), Word)...)
		case bool:
			word := make([]byte, Word)
			if v {
				word[Word-1] = 1
			}
			data = append(data, word...)
		case uint16:
			data = append(data, common.LeftPadBytes(new(big.Int).SetUint64(uint64(v)).Bytes(), Word)...)
		default:
			return nil, fmt.Errorf("unsupported argument type %T at %d", arg, i)
		}
	}
	return data, nil
}

// WordAt returns the i-th 32-byte word of an ABI-encoded return blob.
func WordAt(data []byte, i int) ([]byte, error) {
	start := i * Word
	if len(data) < start+Word {
		return nil, fmt.Errorf("return data too short: want word %d, have %d bytes", i, len(data))
	}
	return data[start : start+Word], nil
}

// BigAt decodes the i-th return word as an unsigned integer.
func BigAt(data []byte, i int) (*big.Int, error) {
	word, err := WordAt(data, i)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(word), nil
}

// AddressAt decodes the i-th return word as an address.
func AddressAt(data []byte, i int) (common.Address, error) {
	word, err := WordAt(data, i)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(word[Word-common.AddressLength:]), nil
}
