// Command ancinfer infers per-allele local ancestry and per-sample
// global ancestry proportions for a study VCF against a reference
// panel, using a Li-Stephens-style forward-backward HMM augmented with
// ancestry labels and an EM loop that estimates T (generations since
// admixture) and mu (global ancestry proportions).
//
// Arguments are key=value tokens (ref, ref-panel, gt, map, out, and the
// optional keys read in runPipeline), following the teacher's
// RunCommand(prog, args, stdin, stdout, stderr) int entry-point shape
// and deferred stderr-print-on-error idiom, rather than flag.FlagSet.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/arvados/ancinfer/internal/ancerr"
	"github.com/arvados/ancinfer/internal/cliargs"
	"github.com/arvados/ancinfer/internal/debugdump"
	"github.com/arvados/ancinfer/internal/fb"
	"github.com/arvados/ancinfer/internal/filterio"
	"github.com/arvados/ancinfer/internal/genome"
	"github.com/arvados/ancinfer/internal/globalanc"
	"github.com/arvados/ancinfer/internal/hmmtab"
	"github.com/arvados/ancinfer/internal/nametable"
	"github.com/arvados/ancinfer/internal/output"
	"github.com/arvados/ancinfer/internal/params"
	"github.com/arvados/ancinfer/internal/refidx"
	"github.com/arvados/ancinfer/internal/vcfio"
	"github.com/arvados/ancinfer/internal/window"
	"github.com/arvados/ancinfer/internal/workpool"
	"github.com/klauspost/pgzip"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// buildVersion is the version string printed for the version, -version
// and --version arguments (this module has no release pipeline of its own).
const buildVersion = "ancinfer/0.1.0-dev"

func main() {
	os.Exit(Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// Run is the whole program's entry point, factored out of main so tests
// can drive it with captured stdio, mirroring the teacher's
// RunCommand(prog, args, stdin, stdout, stderr) int signature.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) (exitCode int) {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Fprintln(stdout, buildVersion)
			return 0
		}
	}

	log := logrus.New()
	log.Out = stderr
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	}

	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()

	a, perr := cliargs.Parse(args)
	if perr != nil {
		err = perr
		return 2
	}
	if lvl := a.String("loglevel", "info"); lvl != "" {
		if parsed, lerr := logrus.ParseLevel(lvl); lerr == nil {
			log.SetLevel(parsed)
		}
	}
	if pprofAddr := a.String("pprof", ""); pprofAddr != "" {
		go func() {
			log.Println(http.ListenAndServe(pprofAddr, nil))
		}()
	}

	err = runPipeline(a, log)
	if err == nil {
		return 0
	}
	if ancerr.Is(err, ancerr.NumericFailure) {
		log.WithError(err).Error("numeric failure, aborting")
	}
	return exitCodeForErr(err)
}

// exitCodeForErr maps an ancerr.Kind to the process exit code: 2 for bad
// input the caller can fix, 3 for a numeric
// failure mid-run, 1 for anything else (including plain I/O errors).
func exitCodeForErr(err error) int {
	switch {
	case ancerr.Is(err, ancerr.MalformedInput), ancerr.Is(err, ancerr.InsufficientData), ancerr.Is(err, ancerr.InconsistentInput):
		return 2
	case ancerr.Is(err, ancerr.NumericFailure):
		return 3
	default:
		return 1
	}
}

// runPipeline wires every phase together: load, filter, EM (optional),
// per-chromosome windowed decode, and output.
func runPipeline(a *cliargs.Args, log *logrus.Logger) error {
	start := time.Now()

	refPath, err := a.RequireString("ref")
	if err != nil {
		return err
	}
	panelPath, err := a.RequireString("ref-panel")
	if err != nil {
		return err
	}
	gtPath, err := a.RequireString("gt")
	if err != nil {
		return err
	}
	mapPath, err := a.RequireString("map")
	if err != nil {
		return err
	}
	outPrefix, err := a.RequireString("out")
	if err != nil {
		return err
	}

	nthreads, err := a.Int("nthreads", runtime.NumCPU())
	if err != nil {
		return err
	}
	seed, err := a.Int64("seed", 1)
	if err != nil {
		return err
	}
	probs, err := a.Bool("probs", false)
	if err != nil {
		return err
	}
	emEnabled, err := a.Bool("em", true)
	if err != nil {
		return err
	}
	array, err := a.Bool("array", false)
	if err != nil {
		return err
	}
	minMAF, err := a.Float64("min-maf", 0)
	if err != nil {
		return err
	}
	minMAC, err := a.Int("min-mac", 0)
	if err != nil {
		return err
	}
	genT, err := a.Float64("gen", 10)
	if err != nil {
		return err
	}
	debugPosteriorsPath := a.String("debug-posteriors", "")

	logFile, err := os.Create(outPrefix + ".log")
	if err != nil {
		return ancerr.Wrap(ancerr.IO, err, "creating log file")
	}
	defer logFile.Close()
	runLog := logrus.New()
	runLog.Out = logFile
	runLog.Infof("ancinfer starting: nthreads=%d seed=%d", nthreads, seed)

	names := nametable.New()

	log.Info("loading reference VCF and genetic map")
	ref, err := loadReference(refPath, mapPath, names)
	if err != nil {
		return err
	}
	panels, err := loadPanelMap(panelPath, ref.sampleIDs, names)
	if err != nil {
		return err
	}
	ancSet := genome.IdentityAncestrySet(panels)

	log.Info("loading study VCF")
	study, err := loadStudy(gtPath)
	if err != nil {
		return err
	}
	if len(study.alleles) != len(ref.markers) {
		return ancerr.New(ancerr.InconsistentInput, "study VCF has %d markers, reference VCF has %d; inputs must be site-aligned", len(study.alleles), len(ref.markers))
	}

	keepSample := map[string]bool{}
	for _, id := range study.sampleIDs {
		keepSample[id] = true
	}
	if gtSamplesPath := a.String("gt-samples", ""); gtSamplesPath != "" {
		f, ferr := os.Open(gtSamplesPath)
		if ferr != nil {
			return ancerr.Wrap(ancerr.IO, ferr, "opening gt-samples")
		}
		sl, serr := filterio.ReadSampleList(f)
		f.Close()
		if serr != nil {
			return serr
		}
		for _, id := range study.sampleIDs {
			if !sl.Keep(id) {
				delete(keepSample, id)
			}
		}
	}
	var sampleIdx []int
	var sampleIDs []string
	for i, id := range study.sampleIDs {
		if keepSample[id] {
			sampleIdx = append(sampleIdx, i)
			sampleIDs = append(sampleIDs, id)
		}
	}
	if len(sampleIDs) == 0 {
		return ancerr.New(ancerr.InsufficientData, "no study samples remain after gt-samples filtering")
	}

	var priors map[string][]float64
	if gtAncPath := a.String("gt-ancestries", ""); gtAncPath != "" {
		f, ferr := os.Open(gtAncPath)
		if ferr != nil {
			return ancerr.Wrap(ancerr.IO, ferr, "opening gt-ancestries")
		}
		list, paerr := filterio.ReadAncestryPriors(f, ancSet.NAncestries())
		f.Close()
		if paerr != nil {
			return paerr
		}
		priors = map[string][]float64{}
		for _, p := range list {
			if keepSample[p.SampleID] {
				priors[p.SampleID] = p.Prior
			}
		}
	}

	var excluded map[string]bool
	if exPath := a.String("excludemarkers", ""); exPath != "" {
		f, ferr := os.Open(exPath)
		if ferr != nil {
			return ancerr.Wrap(ancerr.IO, ferr, "opening excludemarkers")
		}
		excluded, ferr = filterio.ReadIDList(f)
		f.Close()
		if ferr != nil {
			return ferr
		}
	}

	th := filterio.Threshold{MinMAF: minMAF, MinMAC: minMAC}
	var markers []genome.Marker
	var refRecs []refidx.RefGTRec
	var cM []float64
	var studyAlleles [][]int
	for i, m := range ref.markers {
		key := fmt.Sprintf("%s:%d", names.Name(m.Chrom), m.Pos)
		if excluded != nil && (excluded[m.ID] || excluded[key]) {
			continue
		}
		fr := alleleFreq(ref.recs[i], m.NAlleles())
		if !th.Keep(filterio.MarkerFreq{SecondAF: fr.secondAF, SecondAC: fr.secondAC, ArrayGenotype: array}) {
			continue
		}
		markers = append(markers, m)
		refRecs = append(refRecs, ref.recs[i])
		cM = append(cM, ref.cM[i])
		studyAlleles = append(studyAlleles, study.alleles[i])
	}
	if len(markers) == 0 {
		return ancerr.New(ancerr.InsufficientData, "no markers remain after filtering")
	}

	markerSet, err := genome.NewMarkers(markers)
	if err != nil {
		return ancerr.Wrap(ancerr.MalformedInput, err, "building filtered marker set")
	}
	runs := markerSet.ChromRuns()
	markerMap, err := genome.NewMarkerMap(cM, runs)
	if err != nil {
		return ancerr.Wrap(ancerr.MalformedInput, err, "building genetic-position map")
	}

	var model *params.Model
	if modelPath := a.String("model", ""); modelPath != "" {
		f, ferr := os.Open(modelPath)
		if ferr != nil {
			return ancerr.Wrap(ancerr.IO, ferr, "opening model file")
		}
		fc, perr2 := params.Read(f)
		f.Close()
		if perr2 != nil {
			return ancerr.Wrap(ancerr.MalformedInput, perr2, "reading model file")
		}
		if len(fc.AncestryNames) != ancSet.NAncestries() {
			return ancerr.New(ancerr.InconsistentInput, "model file has %d ancestries, reference panels imply %d", len(fc.AncestryNames), ancSet.NAncestries())
		}
		model = fc.Model
		emEnabled = false
	} else {
		model = &params.Model{
			T:     genT,
			Mu:    params.DefaultMu(ancSet.NAncestries()),
			Theta: params.DefaultTheta(ancSet.AncToPanels, panels.NPanels()),
			Eps:   params.DefaultEps(ancSet.AncToPanels, panels.NPanels(), 0.01),
			Rho:   params.DefaultRho(ancSet.NAncestries(), 1.0),
		}
	}
	if verr := model.Validate(ancSet.AncToPanels); verr != nil {
		return ancerr.Wrap(ancerr.MalformedInput, verr, "model validation failed")
	}

	if emEnabled {
		log.Info("running EM on first-chromosome window")
		model, err = runEM(model, panels.RefHapToPanel, panels.NPanels(), markerMap, refRecs, studyAlleles, sampleIdx, runs[0], nthreads, runLog)
		if err != nil {
			return err
		}
	}

	log.Info("running final inference pass")
	tb := output.NewTieBreaker(seed)
	globalTab := globalanc.NewTable(len(sampleIDs), ancSet.NAncestries())

	outVCFFile, err := os.Create(outPrefix + ".anc.vcf.gz")
	if err != nil {
		return ancerr.Wrap(ancerr.IO, err, "creating output VCF")
	}
	defer outVCFFile.Close()
	vw := vcfio.NewWriter(outVCFFile, true, probs)

	ancNames := make([]string, ancSet.NAncestries())
	for i, label := range ancSet.Labels {
		ancNames[i] = names.Name(label)
	}
	chromFields := strings.Split(study.chromLine, "\t")
	if len(chromFields) < 9 {
		return ancerr.New(ancerr.MalformedInput, "study VCF #CHROM line has too few fields")
	}
	newChrom := append(append([]string(nil), chromFields[:9]...), sampleIDs...)
	if err := vw.WriteHeader(study.headerText, strings.Join(newChrom, "\t"), ancNames); err != nil {
		return err
	}

	emis := hmmtab.NewEmissionTable(model)

	// windowCompute is one window's forward-backward output, handed from
	// its compute goroutine to the writer loop over a dedicated channel
	// so windows are written out in order even though up to th.Max of
	// them may be decoding concurrently (the teacher's throttle.go
	// read-ahead-while-writing pattern, relocated to internal/workpool).
	type windowCompute struct {
		results []fb.TaskResult
		err     error
	}

	for _, run := range runs {
		interior := window.ChooseInteriorSize(nthreads, ancSet.NAncestries(), panels.NRefHaps(), 512*1024*1024, 50, 5000)
		overlap := window.OverlapMarkers(cM, run[0], 1, 0.5, 50, 500)
		wins, werr := window.Plan(run[0], run[1], interior, overlap)
		if werr != nil {
			return ancerr.Wrap(ancerr.MalformedInput, werr, "planning windows")
		}

		chans := make([]chan windowCompute, len(wins))
		for i := range chans {
			chans[i] = make(chan windowCompute, 1)
		}
		th := &workpool.Throttle{Max: 2}
		for i, w := range wins {
			i, w := i, w
			th.Acquire()
			go func() {
				defer th.Release()
				sub, serr := refidx.NewIndex(refRecs[w.Lo:w.Hi], panels.RefHapToPanel, panels.NPanels())
				if serr != nil {
					chans[i] <- windowCompute{err: ancerr.Wrap(ancerr.MalformedInput, serr, "building window reference index")}
					return
				}
				dist := make([]float64, w.Hi-w.Lo-1)
				for m := w.Lo; m < w.Hi-1; m++ {
					dist[m-w.Lo] = markerMap.Dist(m)
				}
				gaps := hmmtab.BuildGapTransitions(model, dist)

				tasks := make([]fb.Task, 0, 2*len(sampleIdx))
				for localS, gtIdx := range sampleIdx {
					for hap := 0; hap < 2; hap++ {
						alleles := make([]int, w.Hi-w.Lo)
						for m := w.Lo; m < w.Hi; m++ {
							alleles[m-w.Lo] = studyAlleles[m][2*gtIdx+hap]
						}
						tasks = append(tasks, fb.Task{SampleIdx: localS, Hap: hap, Alleles: alleles})
					}
				}
				wm := &fb.WindowModel{Model: model, Index: sub, Emis: emis, Gaps: gaps}
				results, rerr := fb.RunWindow(context.Background(), nthreads, wm, tasks)
				if rerr != nil {
					chans[i] <- windowCompute{err: ancerr.Wrap(ancerr.NumericFailure, rerr, "forward-backward failed in window [%d,%d)", w.Lo, w.Hi)}
					return
				}
				chans[i] <- windowCompute{results: results}
			}()
		}

		for i, w := range wins {
			wc := <-chans[i]
			if wc.err != nil {
				return wc.err
			}
			bySample := make([][2]*fb.Result, len(sampleIdx))
			for _, r := range wc.results {
				bySample[r.SampleIdx][r.Hap] = r.Result
			}

			if debugPosteriorsPath != "" {
				rows := make([][]float64, 0, (w.IntHi-w.IntLo)*len(sampleIdx)*2)
				for mi := w.IntLo; mi < w.IntHi; mi++ {
					off := mi - w.Lo
					for localS := range sampleIDs {
						rows = append(rows, bySample[localS][0].Posterior[off], bySample[localS][1].Posterior[off])
					}
				}
				if len(rows) > 0 {
					dumpPath := fmt.Sprintf("%s.%d-%d.npy", debugPosteriorsPath, w.IntLo, w.IntHi)
					df, derr := os.Create(dumpPath)
					if derr != nil {
						return ancerr.Wrap(ancerr.IO, derr, "creating debug-posteriors output")
					}
					werr := debugdump.WritePosteriors(df, rows, ancSet.NAncestries())
					cerr := df.Close()
					if werr != nil {
						return werr
					}
					if cerr != nil {
						return ancerr.Wrap(ancerr.IO, cerr, "closing debug-posteriors output")
					}
				}
			}

			for mi := w.IntLo; mi < w.IntHi; mi++ {
				off := mi - w.Lo
				rec := markerRecord(markerSet, mi, names)
				rec.Samples = make([]string, len(sampleIDs))
				sf := vcfio.SampleFields{AN1: make([]string, len(sampleIDs)), AN2: make([]string, len(sampleIDs))}
				if probs {
					sf.ANP1 = make([]string, len(sampleIDs))
					sf.ANP2 = make([]string, len(sampleIDs))
				}
				for localS, id := range sampleIDs {
					gtIdx := sampleIdx[localS]
					rec.Samples[localS] = fmt.Sprintf("%d|%d", studyAlleles[mi][2*gtIdx], studyAlleles[mi][2*gtIdx+1])
					p1 := bySample[localS][0].Posterior[off]
					p2 := bySample[localS][1].Posterior[off]
					if prior, ok := priors[id]; ok {
						p1, p2 = prior, prior
					}
					call := output.BuildCall(tb, p1, p2, probs)
					an1, an2, anp1, anp2 := output.FormatFields(call, probs)
					sf.AN1[localS], sf.AN2[localS] = an1, an2
					if probs {
						sf.ANP1[localS], sf.ANP2[localS] = anp1, anp2
					}
					if aerr := globalTab.Add(localS, p1); aerr != nil {
						return ancerr.Wrap(ancerr.NumericFailure, aerr, "accumulating global ancestry")
					}
					if aerr := globalTab.Add(localS, p2); aerr != nil {
						return ancerr.Wrap(ancerr.NumericFailure, aerr, "accumulating global ancestry")
					}
				}
				if werr := vw.WriteRecord(rec, sf); werr != nil {
					return werr
				}
			}
		}
		if werr := th.Wait(); werr != nil {
			return werr
		}
	}
	if err := vw.Close(); err != nil {
		return err
	}

	if err := writeGlobalAncestry(outPrefix+".global.anc.gz", sampleIDs, ancNames, globalTab); err != nil {
		return err
	}
	if err := writeModelFile(outPrefix+".model", ancNames, panelNames(panels, names), model); err != nil {
		return err
	}

	runLog.Infof("done in %s", time.Since(start))
	return nil
}

type freqInfo struct {
	secondAF float64
	secondAC int
}

func alleleFreq(rec refidx.RefGTRec, nAlleles int) freqInfo {
	counts := make([]int, nAlleles)
	total := 0
	rec.NonNull(func(allele int, haps []int) {
		counts[allele] += len(haps)
		total += len(haps)
	})
	if null := rec.NullAllele(); null >= 0 {
		counts[null] += rec.NHaps() - total
	}
	best, second := 0, 0
	for _, c := range counts {
		if c > best {
			second = best
			best = c
		} else if c > second {
			second = c
		}
	}
	n := rec.NHaps()
	if n == 0 {
		return freqInfo{}
	}
	return freqInfo{secondAF: float64(second) / float64(n), secondAC: second}
}

func panelNames(panels *genome.Panels, names *nametable.Table) []string {
	out := make([]string, panels.NPanels())
	for i, label := range panels.Labels {
		out[i] = names.Name(label)
	}
	return out
}

func markerRecord(markers *genome.Markers, i int, names *nametable.Table) *vcfio.Record {
	m := markers.At(i)
	alt := ""
	if len(m.Alleles) > 1 {
		alt = strings.Join(m.Alleles[1:], ",")
	}
	return &vcfio.Record{
		Chrom:  names.Name(m.Chrom),
		Pos:    strconv.Itoa(m.Pos),
		ID:     m.ID,
		Ref:    m.Alleles[0],
		Alt:    alt,
		Qual:   m.Qual,
		Filter: m.Filter,
		Info:   m.Info,
		Format: "GT",
	}
}

func writeGlobalAncestry(path string, sampleIDs, ancNames []string, tab *globalanc.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return ancerr.Wrap(ancerr.IO, err, "creating global ancestry output")
	}
	defer f.Close()
	gz := pgzip.NewWriter(f)
	bw := bufio.NewWriterSize(gz, 4*1024*1024)
	fmt.Fprintf(bw, "SAMPLE\t%s\n", strings.Join(ancNames, "\t"))
	for i, row := range tab.Rows() {
		parts := make([]string, len(row))
		for j, v := range row {
			parts[j] = strconv.FormatFloat(v, 'g', 6, 64)
		}
		fmt.Fprintf(bw, "%s\t%s\n", sampleIDs[i], strings.Join(parts, "\t"))
	}
	if err := bw.Flush(); err != nil {
		return ancerr.Wrap(ancerr.IO, err, "flushing global ancestry output")
	}
	return gz.Close()
}

func writeModelFile(path string, ancNames, panelNames []string, model *params.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return ancerr.Wrap(ancerr.IO, err, "creating model output")
	}
	defer f.Close()
	return params.Write(f, &params.FileContents{AncestryNames: ancNames, PanelNames: panelNames, Model: model})
}
