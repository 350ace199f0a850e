package main

import (
	"fmt"
	"time"

	"github.com/avatolabs/go-olympus/pkg/cryptography"
	"github.com/avatolabs/go-olympus/pkg/genesis"
	"github.com/avatolabs/go-olympus/pkg/types"
)

const (
	accounts   = 3
	devBalance = "1000000000000000000000"
)

func main() {
	spec := &genesis.Spec{
		ChainID:   970,
		Timestamp: time.Now().Unix(),
		Alloc:     map[string]string{},
	}

	for i := 0; i < accounts; i++ {
		pk, err := cryptography.GenerateKey()
		if err != nil {
			panic(err)
		}

		addr := types.Address(cryptography.PubkeyToAddress(&pk.PublicKey))
		spec.Alloc[addr.Hex()] = devBalance

		fmt.Printf("account %d\n  address: %s\n  key:     %x\n", i, addr.Hex(), cryptography.PrivateKeyBytes(pk))
	}

	d, err := spec.Encode()
	if err != nil {
		panic(err)
	}

	fmt.Printf("Genesis Spec:\n%s\n", d)
}
