// Command powtool inspects compact targets and replays retarget decisions offline.
package main

import (
	"errors"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/multialgo-retarget/internal/consensus"
	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

type options struct {
	Network model.Network `long:"network" short:"n" env:"POWTOOL_NETWORK" description:"network name (mainnet, testnet, regtest)" default:"mainnet"`
	Verbose bool          `long:"verbose" short:"v" description:"log retarget diagnostics to stderr"`
}

func (o *options) params() (*consensus.Params, error) {
	return consensus.ForNetwork(o.Network)
}

func (o *options) logger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !o.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func newParser(opts *options, out io.Writer) (*flags.Parser, error) {
	parser := flags.NewParser(opts, flags.Default)
	commands := []struct {
		name, short, long string
		data              any
	}{
		{
			"check", "Check a block hash against compact bits",
			"Reports whether the hash meets the target encoded by bits under the network's proof-of-work limit.",
			&checkCommand{opts: opts, out: out},
		},
		{
			"next", "Compute the next required bits from a header file",
			"Replays getblockheader verbose results (a JSON array) and prints the bits the next block of an algorithm must carry.",
			&nextCommand{opts: opts, out: out},
		},
		{
			"weight", "Print algorithm weights",
			"Prints the scaled mining share of the given algorithms, or of all of them.",
			&weightCommand{opts: opts, out: out},
		},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

func main() {
	opts := options{}
	parser, err := newParser(&opts, os.Stdout)
	if err != nil {
		panic("can't build command parser: " + err.Error())
	}

	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
