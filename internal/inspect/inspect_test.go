package inspect_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/calinspect/internal/calib"
	"github.com/san-kum/calinspect/internal/config"
	"github.com/san-kum/calinspect/internal/inspect"
)

const device = "ixonwfs_alpao_dm97"

var _ = Describe("Inspector", func() {
	var (
		dataDir string
		outDir  string
		cfg     inspect.Config
	)

	BeforeEach(func() {
		root := GinkgoT().TempDir()
		dataDir = filepath.Join(root, "FOAM_data")
		outDir = filepath.Join(root, "plots")

		cal, err := calib.Synthesize(calib.RandomInfluence(10, 4, 42))
		Expect(err).NotTo(HaveOccurred())
		_, err = calib.Write(dataDir, "dev.wfs.shwfs", device, cal)
		Expect(err).NotTo(HaveOccurred())

		c := config.DefaultConfig()
		c.OutDir = outDir
		c.Plot.Width, c.Plot.Height = 8, 6
		cfg = inspect.FromConfig(c)
	})

	Context("with a consistent dataset", func() {
		It("reconstructs the pseudo-inverse and reports geometry", func() {
			rep, err := inspect.New(cfg, nil).Run(context.Background(), dataDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(rep.Device).To(Equal(device))
			Expect(rep.NMeas).To(Equal(10))
			Expect(rep.NModes).To(Equal(4))

			r, c := rep.Actuation.Dims()
			Expect(r).To(Equal(4))
			Expect(c).To(Equal(10))

			Expect(rep.Stats.ZeroSingular).To(BeZero())
			Expect(rep.Stats.IdentityDeviation).To(BeNumerically("<", 1e-9))
			Expect(rep.Stats.PseudoIdentResidual).To(BeNumerically("<", 1e-9))
		})

		It("computes the tip/tilt response from the actuation matrix", func() {
			rep, err := inspect.New(cfg, nil).Run(context.Background(), dataDir)
			Expect(err).NotTo(HaveOccurred())

			var want mat.VecDense
			want.MulVec(rep.Actuation, calib.TipVector(10))
			Expect(rep.Tip).To(HaveLen(4))
			for i, v := range rep.Tip {
				Expect(v).To(BeNumerically("~", want.AtVec(i), 1e-12))
			}
			Expect(rep.Tilt).To(HaveLen(4))
		})

		It("writes one image per matrix plus actuation and tip/tilt", func() {
			rep, err := inspect.New(cfg, nil).Run(context.Background(), dataDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(rep.Images).To(HaveLen(len(calib.Kinds) + 2))
			Expect(filepath.Join(outDir, "Influence matrix"+device+".png")).To(BeAnExistingFile())
			Expect(filepath.Join(outDir, "Singular values"+device+".png")).To(BeAnExistingFile())
			Expect(filepath.Join(outDir, inspect.ActuationTitle+device+".png")).To(BeAnExistingFile())
			Expect(filepath.Join(outDir, "calib_tip_tilt_actuation.pdf")).To(BeAnExistingFile())
		})

		It("skips image output when plots are disabled", func() {
			cfg.Plots = false
			rep, err := inspect.New(cfg, nil).Run(context.Background(), dataDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Images).To(BeEmpty())
			Expect(outDir).NotTo(BeADirectory())
		})

		It("applies the singular value cutoff", func() {
			cfg.Plots = false
			cfg.Cutoff = 2
			rep, err := inspect.New(cfg, nil).Run(context.Background(), dataDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Stats.ModesUsed).To(Equal(2))
			Expect(rep.Stats.IdentityDeviation).To(BeNumerically(">=", 0.5))
		})
	})

	Context("with a broken dataset", func() {
		It("fails in the locate stage when a file is missing", func() {
			Expect(os.Remove(filepath.Join(dataDir, calib.FileName("dev.wfs.shwfs", device, calib.KindV, 10, 4)))).To(Succeed())

			_, err := inspect.New(cfg, nil).Run(context.Background(), dataDir)
			Expect(err).To(MatchError(calib.ErrNoMatch))

			var se *inspect.StageError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Stage).To(Equal(inspect.StageLocate))
		})

		It("fails in the load stage on a shape mismatch", func() {
			path := filepath.Join(dataDir, calib.FileName("dev.wfs.shwfs", device, calib.KindU, 10, 4))
			Expect(os.WriteFile(path, []byte("1\n2\n3\n"), 0644)).To(Succeed())

			_, err := inspect.New(cfg, nil).Run(context.Background(), dataDir)
			Expect(err).To(MatchError(calib.ErrShape))

			var se *inspect.StageError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Stage).To(Equal(inspect.StageLoad))
		})

		It("stops when the context is canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := inspect.New(cfg, nil).Run(ctx, dataDir)
			Expect(err).To(MatchError(context.Canceled))
		})

		It("does not scan the directory once the context is canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := inspect.New(cfg, nil).Run(ctx, filepath.Join(dataDir, "missing"))
			Expect(err).To(MatchError(context.Canceled))
			Expect(errors.Is(err, os.ErrNotExist)).To(BeFalse())
		})
	})
})
