package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/goodnatureofminers/multialgo-retarget/internal/pow"
	"github.com/goodnatureofminers/multialgo-retarget/internal/source/bitcoin"
	"github.com/goodnatureofminers/multialgo-retarget/internal/target"
)

var errInvalidProof = errors.New("proof of work does not meet target")

type checkCommand struct {
	opts *options
	out  io.Writer

	Hash string `long:"hash" description:"block hash in RPC byte order" required:"true"`
	Bits string `long:"bits" description:"compact target as hex" required:"true"`
}

func (c *checkCommand) Execute([]string) error {
	params, err := c.opts.params()
	if err != nil {
		return err
	}
	hash, err := chainhash.NewHashFromStr(c.Hash)
	if err != nil {
		return fmt.Errorf("parse hash: %w", err)
	}
	bits, err := bitcoin.ParseBits(c.Bits)
	if err != nil {
		return fmt.Errorf("parse bits: %w", err)
	}

	t, negative, overflow := target.DecodeCompact(bits)
	valid := pow.CheckProofOfWork(*hash, bits, params)

	w := newTableWriter(c.out)
	row(w, "network", params.Name)
	row(w, "hash", hash.String())
	row(w, "bits", fmt.Sprintf("%08x", bits))
	row(w, "target", targetHex(&t))
	row(w, "negative", fmt.Sprint(negative))
	row(w, "overflow", fmt.Sprint(overflow))
	row(w, "valid", fmt.Sprint(valid))
	if err := w.Flush(); err != nil {
		return err
	}

	if !valid {
		return errInvalidProof
	}
	return nil
}
