package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/btcsuite/btcd/btcjson"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
	"github.com/goodnatureofminers/multialgo-retarget/internal/audit"
	"github.com/goodnatureofminers/multialgo-retarget/internal/chainindex"
	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
	"github.com/goodnatureofminers/multialgo-retarget/internal/pow"
	"github.com/goodnatureofminers/multialgo-retarget/internal/source/bitcoin"
	"github.com/goodnatureofminers/multialgo-retarget/internal/target"
)

type nextCommand struct {
	opts *options
	out  io.Writer

	Headers string `long:"headers" description:"JSON file with verbose getblockheader results, - for stdin" required:"true"`
	Algo    string `long:"algo" description:"algorithm of the next block" required:"true"`
}

func (c *nextCommand) Execute([]string) error {
	params, err := c.opts.params()
	if err != nil {
		return err
	}
	id, err := algo.Parse(c.Algo)
	if err != nil {
		return err
	}
	headers, err := readHeaders(c.Headers, c.opts.Network)
	if err != nil {
		return err
	}
	idx, err := audit.IndexHeaders(headers)
	if err != nil {
		return err
	}

	logger, err := c.opts.logger()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	var reason pow.Reason
	calc := pow.NewCalculator(pow.Observers{
		pow.NewLogObserver(logger),
		pow.ObserverFunc(func(r pow.Retarget) { reason = r.Reason }),
	})
	tip := idx.Tip()
	bits := calc.NextWorkRequired(idx, tip, params, id)

	history := "complete"
	if !audit.HistoryComplete(idx, tip, params, id) {
		history = "truncated"
		logger.Warn("headers do not reach back far enough; bits may be the pow limit fallback",
			zap.Int64("first_height", idx.Base()),
			zap.Uint64("min_headers", audit.MinWarmup(params)),
			zap.String("algo", id.String()),
		)
	}

	var height int64
	if tip != chainindex.NoRef {
		height = idx.Record(tip).Height + 1
	}
	t, _, _ := target.DecodeCompact(bits)

	w := newTableWriter(c.out)
	row(w, "network", params.Name)
	row(w, "algo", id.String())
	row(w, "height", fmt.Sprint(height))
	row(w, "bits", fmt.Sprintf("%08x", bits))
	row(w, "target", targetHex(&t))
	row(w, "reason", string(reason))
	row(w, "history", history)
	return w.Flush()
}

func readHeaders(path string, network model.Network) ([]model.Header, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open headers: %w", err)
		}
		defer f.Close()
		r = f
	}

	var raw []btcjson.GetBlockHeaderVerboseResult
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}

	headers := make([]model.Header, 0, len(raw))
	for _, src := range raw {
		h, err := bitcoin.BuildHeaderFromVerbose(src, network)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].Height < headers[j].Height })
	return headers, nil
}
