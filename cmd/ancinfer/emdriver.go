package main

import (
	"context"

	"github.com/arvados/ancinfer/internal/em"
	"github.com/arvados/ancinfer/internal/fb"
	"github.com/arvados/ancinfer/internal/genome"
	"github.com/arvados/ancinfer/internal/hmmtab"
	"github.com/arvados/ancinfer/internal/params"
	"github.com/arvados/ancinfer/internal/refidx"
	"github.com/sirupsen/logrus"
)

// emWindowCM is the cM length of the single window EM runs on, clamped
// per spec.md §4.4 step 1 ("the first full window, clamped to a
// configured cM length").
const emWindowCM = 5.0

// runEM runs the EM loop of spec.md §4.4 over a single window at the
// start of the first chromosome run, returning the fitted model.
func runEM(
	initial *params.Model,
	hapToPanel []int,
	nPanels int,
	markerMap *genome.MarkerMap,
	refRecs []refidx.RefGTRec,
	studyAlleles [][]int,
	sampleIdx []int,
	firstRun [2]int,
	nthreads int,
	log *logrus.Logger,
) (*params.Model, error) {
	lo := firstRun[0]
	hi := firstRun[0] + 1
	base := markerMap.CM(lo)
	for hi < firstRun[1] && markerMap.CM(hi)-base < emWindowCM {
		hi++
	}
	if hi-lo < 2 {
		hi = lo + 2
		if hi > firstRun[1] {
			hi = firstRun[1]
		}
	}

	ix, err := refidx.NewIndex(refRecs[lo:hi], hapToPanel, nPanels)
	if err != nil {
		return nil, err
	}
	dist := make([]float64, hi-lo-1)
	for i := lo; i < hi-1; i++ {
		dist[i-lo] = markerMap.Dist(i)
	}

	tasks := make([]fb.Task, 0, 2*len(sampleIdx))
	for localS, gtIdx := range sampleIdx {
		for hap := 0; hap < 2; hap++ {
			alleles := make([]int, hi-lo)
			for m := lo; m < hi; m++ {
				alleles[m-lo] = studyAlleles[m][2*gtIdx+hap]
			}
			tasks = append(tasks, fb.Task{SampleIdx: localS, Hap: hap, Alleles: alleles})
		}
	}

	runFB := func(model *params.Model) (*em.Accumulator, float64, error) {
		emis := hmmtab.NewEmissionTable(model)
		gaps := hmmtab.BuildGapTransitions(model, dist)
		wm := &fb.WindowModel{Model: model, Index: ix, Emis: emis, Gaps: gaps}
		results, err := fb.RunWindow(context.Background(), nthreads, wm, tasks)
		if err != nil {
			return nil, 0, err
		}
		acc := em.NewAccumulator(len(model.Mu))
		logP := 0.0
		for _, r := range results {
			acc.Add(r.Result, dist)
			logP += r.Result.LogP
		}
		return acc, logP, nil
	}

	model, logs, err := em.Run(initial, em.DefaultMaxIterations, em.DefaultTolerance, em.DefaultNu, runFB)
	if err != nil {
		return nil, err
	}
	for _, l := range logs {
		log.Infof("EM iteration %d: T=%.3f mu=%v logP=%.6f delta=%.6g", l.Iteration, l.T, l.Mu, l.LogP, l.Delta)
	}
	return model, nil
}
