package main

import (
	"fmt"
	"io"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
)

type weightCommand struct {
	opts *options
	out  io.Writer

	Args struct {
		Algos []string `positional-arg-name:"algo" description:"algorithm names; all when omitted"`
	} `positional-args:"yes"`
}

func (c *weightCommand) Execute([]string) error {
	ids := algo.All()
	if len(c.Args.Algos) > 0 {
		ids = ids[:0]
		for _, name := range c.Args.Algos {
			id, err := algo.Parse(name)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
	}

	logger, err := c.opts.logger()
	if err != nil {
		return err
	}
	table := algo.NewWeightTable(logger)

	w := newTableWriter(c.out)
	for _, id := range ids {
		row(w, id.String(), fmt.Sprint(table.Weight(id)))
	}
	return w.Flush()
}
