package command_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/drivetrain"
	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/path"
)

type stubChassis struct {
	pose     geom.Pose
	goals    []geom.Translation
	goalEps  geom.Translation
	side     drivetrain.Side
	maxSpeed float64
	stops    int
}

func (s *stubChassis) Pose() geom.Pose { return s.pose }

func (s *stubChassis) SetGoalPose(goal geom.Translation, eps geom.Translation) {
	s.goals = append(s.goals, goal)
	s.goalEps = eps
}

func (s *stubChassis) SetFrontSide(side drivetrain.Side) { s.side = side }

func (s *stubChassis) SetMaxSpeedPercent(p float64) { s.maxSpeed = p }

func (s *stubChassis) Stop() { s.stops++ }

func (s *stubChassis) WidthMeters() float64 { return 0.66 }

func mustPath(pts ...geom.Translation) path.Path {
	p, err := path.FromTranslations(pts...)
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("Command", func() {
	var (
		chassis  *stubChassis
		mock     *clock.Mock
		logger   *zap.Logger
		logs     *observer.ObservedLogs
		opts     command.Options
		straight path.Path
	)

	BeforeEach(func() {
		chassis = &stubChassis{}
		mock = clock.NewMock()
		var core zapcore.Core
		core, logs = observer.New(zapcore.DebugLevel)
		logger = zap.New(core)

		opts = command.DefaultOptions()
		opts.Clock = mock
		opts.LogDir = GinkgoT().TempDir()

		straight = mustPath(geom.Translation{X: 0, Y: 0}, geom.Translation{X: 2, Y: 0})
	})

	newCommand := func(p path.Path, eps float64) *command.Command {
		cmd, err := command.New(chassis, p, eps, logger, opts)
		Expect(err).NotTo(HaveOccurred())
		return cmd
	}

	Describe("construction", func() {
		It("starts idle", func() {
			Expect(newCommand(straight, 0.05).State()).To(Equal(command.Idle))
		})

		It("rejects an empty path", func() {
			_, err := command.New(chassis, path.Path{}, 0.05, logger, opts)
			Expect(err).To(MatchError(path.ErrEmptyPath))
		})

		It("rejects a negative epsilon", func() {
			_, err := command.New(chassis, straight, -1, logger, opts)
			Expect(err).To(MatchError(command.ErrInvalidOptions))
		})

		DescribeTable("rejects invalid options",
			func(mutate func(*command.Options)) {
				mutate(&opts)
				_, err := command.New(chassis, straight, 0.05, logger, opts)
				Expect(err).To(MatchError(command.ErrInvalidOptions))
			},
			Entry("zero max speed", func(o *command.Options) { o.MaxSpeed = 0 }),
			Entry("max speed above one", func(o *command.Options) { o.MaxSpeed = 1.5 }),
			Entry("zero lookahead", func(o *command.Options) { o.Lookahead = 0 }),
			Entry("negative tolerance", func(o *command.Options) { o.Tolerance = -0.1 }),
			Entry("unknown side", func(o *command.Options) { o.FrontSide = drivetrain.Side(7) }),
		)
	})

	Describe("Initialize", func() {
		It("configures the chassis and starts running", func() {
			opts.FrontSide = drivetrain.Rear
			opts.MaxSpeed = 0.4
			cmd := newCommand(straight, 0.05)

			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.State()).To(Equal(command.Running))
			Expect(chassis.side).To(Equal(drivetrain.Rear))
			Expect(chassis.maxSpeed).To(Equal(0.4))
		})

		It("opens a log named after the start time", func() {
			mock.Add(12340 * time.Millisecond)
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())

			Expect(filepath.Base(cmd.LogPath())).To(Equal("PathFollowCommand_12.34.csv"))
			Expect(cmd.Logging()).To(BeTrue())
		})

		It("only runs once", func() {
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.Initialize()).To(MatchError(command.ErrInvalidTransition))
			Expect(cmd.State()).To(Equal(command.Running))
		})

		It("keeps going when the log cannot be opened", func() {
			blocker := filepath.Join(GinkgoT().TempDir(), "not-a-dir")
			Expect(os.WriteFile(blocker, nil, 0644)).To(Succeed())
			opts.LogDir = filepath.Join(blocker, "logs")
			cmd := newCommand(straight, 0.05)

			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.State()).To(Equal(command.Running))
			Expect(cmd.LogPath()).To(BeEmpty())
			Expect(logs.FilterLevelExact(zapcore.WarnLevel).FilterMessageSnippet("failed to open").Len()).To(Equal(1))

			Expect(cmd.Execute()).To(Succeed())
			Expect(cmd.End(false)).To(Succeed())
		})
	})

	Describe("Configure", func() {
		It("applies a new lookahead while idle", func() {
			cmd := newCommand(straight, 0.05)
			opts.Lookahead = 0.5
			Expect(cmd.Configure(opts)).To(Succeed())

			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.Execute()).To(Succeed())
			Expect(cmd.Goal().X).To(BeNumerically("~", 0.5, 1e-9))
		})

		It("is locked once initialized", func() {
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())

			changed := opts
			changed.MaxSpeed = 0.1
			Expect(cmd.Configure(changed)).To(MatchError(command.ErrConfigLocked))
			Expect(cmd.Options().MaxSpeed).To(Equal(1.0))
		})
	})

	Describe("Execute", func() {
		It("is rejected before Initialize", func() {
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Execute()).To(MatchError(command.ErrInvalidTransition))
			Expect(cmd.State()).To(Equal(command.Idle))
			Expect(chassis.goals).To(BeEmpty())
		})

		It("hands the lookahead goal to the chassis with a tight tolerance", func() {
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.Execute()).To(Succeed())

			Expect(chassis.goals).To(HaveLen(1))
			Expect(chassis.goals[0].X).To(BeNumerically("~", 0.2, 1e-9))
			Expect(chassis.goalEps).To(Equal(geom.Translation{X: 0.01, Y: 0.01}))
		})

		It("writes one row per tick", func() {
			chassis.pose = geom.NewPose(0, 0, geom.FromDegrees(90))
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())

			mock.Add(500 * time.Millisecond)
			Expect(cmd.Execute()).To(Succeed())
			chassis.pose = geom.NewPose(0.25, -0.1, geom.FromDegrees(-45))
			mock.Add(20 * time.Millisecond)
			Expect(cmd.Execute()).To(Succeed())
			Expect(cmd.End(false)).To(Succeed())

			data, err := os.ReadFile(cmd.LogPath())
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).To(Equal([]string{
				command.LogHeader,
				"0.50, 0.00, 0.00, 90.00, 0.20, 0.00",
				"0.52, 0.25, -0.10, -45.00, 0.42, 0.00",
			}))
		})
	})

	Describe("IsFinished", func() {
		It("is decided by the final point, not the lookahead goal", func() {
			loop := mustPath(
				geom.Translation{X: 0, Y: 0},
				geom.Translation{X: 2, Y: 0},
				geom.Translation{X: 2, Y: 2},
				geom.Translation{X: 0, Y: 2},
				geom.Translation{X: 0, Y: 0.03},
			)
			cmd := newCommand(loop, 0.05)
			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.Execute()).To(Succeed())

			Expect(cmd.Goal().Distance(geom.Translation{X: 0, Y: 0.03})).To(BeNumerically(">", 0.1))
			Expect(cmd.IsFinished()).To(BeTrue())
		})

		It("is false at an intermediate goal", func() {
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.Execute()).To(Succeed())

			chassis.pose = geom.Pose{Translation: cmd.Goal()}
			Expect(cmd.IsFinished()).To(BeFalse())
		})

		DescribeTable("uses an axis-wise box",
			func(x, y float64, want bool) {
				chassis.pose = geom.NewPose(x, y, 0)
				Expect(newCommand(straight, 0.1).IsFinished()).To(Equal(want))
			},
			Entry("corner of the box", 2.09, 0.09, true),
			Entry("inside on x, outside on y", 2.0, 0.11, false),
			Entry("outside on x", 1.89, 0.0, false),
		)

		It("finishes a single-waypoint path", func() {
			single := mustPath(geom.Translation{X: 1, Y: 1})
			cmd := newCommand(single, 0.05)
			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.Execute()).To(Succeed())

			Expect(cmd.Goal()).To(Equal(geom.Translation{X: 1, Y: 1}))
			Expect(cmd.Follower().FinalPose()).To(Equal(geom.Translation{X: 1, Y: 1}))
			Expect(cmd.IsFinished()).To(BeFalse())

			chassis.pose = geom.NewPose(1.02, 0.98, 0)
			Expect(cmd.IsFinished()).To(BeTrue())
		})
	})

	Describe("End", func() {
		It("completes, stops the chassis and closes the log once", func() {
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.Execute()).To(Succeed())

			Expect(cmd.End(false)).To(Succeed())
			Expect(cmd.State()).To(Equal(command.Completed))
			Expect(chassis.stops).To(Equal(1))
			Expect(cmd.Logging()).To(BeFalse())
			Expect(logs.FilterMessageSnippet("saving CSV logfile").Len()).To(Equal(1))

			Expect(cmd.End(true)).To(Succeed())
			Expect(cmd.State()).To(Equal(command.Completed))
			Expect(chassis.stops).To(Equal(1))
			Expect(logs.FilterMessageSnippet("saving CSV logfile").Len()).To(Equal(1))
		})

		It("interrupts with the same cleanup", func() {
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())

			Expect(cmd.End(true)).To(Succeed())
			Expect(cmd.State()).To(Equal(command.Interrupted))
			Expect(chassis.stops).To(Equal(1))
			Expect(cmd.Logging()).To(BeFalse())
			Expect(logs.FilterMessageSnippet("interrupted").Len()).To(Equal(1))
			Expect(cmd.Execute()).To(MatchError(command.ErrInvalidTransition))
		})

		It("does not fail without a log", func() {
			opts.LogEnabled = false
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())
			Expect(cmd.LogPath()).To(BeEmpty())

			Expect(cmd.End(false)).To(Succeed())
			Expect(chassis.stops).To(Equal(1))
		})

		It("is rejected before the command started", func() {
			cmd := newCommand(straight, 0.05)
			Expect(cmd.End(true)).To(MatchError(command.ErrInvalidTransition))
			Expect(cmd.State()).To(Equal(command.Idle))
			Expect(chassis.stops).To(BeZero())
		})

		It("freezes the elapsed time", func() {
			cmd := newCommand(straight, 0.05)
			Expect(cmd.Initialize()).To(Succeed())
			mock.Add(3 * time.Second)
			Expect(cmd.End(false)).To(Succeed())
			mock.Add(10 * time.Second)
			Expect(cmd.Elapsed().Seconds()).To(BeNumerically("~", 3, 1e-9))
		})
	})
})
