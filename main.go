package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lintang-b-s/kwayrefine/pkg/config"
	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
	"github.com/lintang-b-s/kwayrefine/pkg/flow2way"
	"github.com/lintang-b-s/kwayrefine/pkg/logger"
	"github.com/lintang-b-s/kwayrefine/pkg/metisio"
	"github.com/lintang-b-s/kwayrefine/pkg/scheduler"
)

var (
	flagGraph      string
	flagPartition  string
	flagConfigFile string
	flagOut        string
)

func init() {
	flag.StringVar(&flagGraph, "graph", "", "METIS-style CSR graph file (optionally .bz2)")
	flag.StringVar(&flagPartition, "partition", "", "pre-existing partition file, one block id per line")
	flag.StringVar(&flagConfigFile, "config", "", "viper config file (yaml)")
	flag.StringVar(&flagOut, "out", "partition.out", "output partition file")
}

func main() {
	flag.Parse()

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	opts, err := config.Load(flagConfigFile)
	if err != nil {
		log.Fatal(err.Error())
	}

	if flagGraph == "" {
		fmt.Fprintln(os.Stderr, "usage: kwayrefine -graph <metis-file> [-partition <partition-file>] [-config <file>]")
		os.Exit(2)
	}

	g, err := metisio.ReadGraph(flagGraph, opts.K)
	if err != nil {
		log.Fatal(err.Error())
	}
	if flagPartition != "" {
		if err := metisio.ReadPartitionFile(flagPartition, g); err != nil {
			log.Fatal(err.Error())
		}
	}

	b := datastructure.NewBoundaryIndex(g)

	var refiner flow2way.TwoWayRefiner
	switch opts.RefinementType {
	case config.RefinementFlow:
		refiner = flow2way.NewFlowRefiner()
	case config.RefinementFMFlow:
		refiner = combinedRefiner{fm: flow2way.NewFMRefiner(1), flow: flow2way.NewFlowRefiner()}
	default:
		refiner = flow2way.NewFMRefiner(1)
	}

	s := scheduler.New(g, b, opts, refiner, 1, log)
	stats := s.Run()
	log.Sugar().Infof("refinement finished: %d rounds", len(stats))

	if err := metisio.WritePartition(flagOut, g); err != nil {
		log.Fatal(err.Error())
	}
	metisio.PrintMetrics(g, b)
}

// combinedRefiner tries FM first, falling back to flow only when FM
// found nothing.
type combinedRefiner struct {
	fm   flow2way.TwoWayRefiner
	flow flow2way.TwoWayRefiner
}

func (c combinedRefiner) Refine(g *datastructure.Graph, b *datastructure.BoundaryIndex, lhs, rhs int32, upperBound []int64) (int64, bool) {
	improvement, changed := c.fm.Refine(g, b, lhs, rhs, upperBound)
	if changed {
		return improvement, changed
	}
	return c.flow.Refine(g, b, lhs, rhs, upperBound)
}
