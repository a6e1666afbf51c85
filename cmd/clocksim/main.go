package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coreman2200/pixelclock/internal/app"
	"github.com/coreman2200/pixelclock/internal/color"
	"github.com/coreman2200/pixelclock/internal/config"
	"github.com/coreman2200/pixelclock/internal/led"
	"github.com/coreman2200/pixelclock/internal/render"
	"github.com/coreman2200/pixelclock/internal/scheduler"
)

const historyCapacity = 120

var (
	configPath string
	logPath    string
	httpAddr   string
	rows       int
	cols       int
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clocksim",
		Short: "run the clock against a terminal rendering of the matrix",
		RunE:  run,
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional config.yaml")
	rootCmd.Flags().StringVar(&logPath, "log", "", "write logs to this file")
	rootCmd.Flags().StringVar(&httpAddr, "http", "", "also serve the command plane on this address")
	rootCmd.Flags().IntVar(&rows, "rows", 0, "override layout rows")
	rootCmd.Flags().IntVar(&cols, "cols", 0, "override layout cols")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := zerolog.Nop()
	if logPath != "" {
		f, err := os.Create(logPath)
		if err != nil {
			return err
		}
		defer f.Close()
		logger = zerolog.New(f).With().Timestamp().Logger()
	}

	cfg := config.Default()
	if configPath != "" {
		c, notes, err := config.Load(configPath)
		if err != nil {
			return err
		}
		for _, n := range notes {
			logger.Warn().Msg(n)
		}
		cfg = c
	}
	if rows > 0 {
		cfg.Layout.Rows = rows
	}
	if cols > 0 {
		cfg.Layout.Cols = cols
	}
	cfg.Normalize()
	cfg.Sensor.Type = "none"
	cfg.HTTP.Addr = httpAddr

	sim := led.NewSim(logger)
	a, err := app.New(cfg, app.Options{ConfigPath: configPath, Outputs: led.Fanout{sim}, Logger: logger})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	_, err = tea.NewProgram(newModel(a, sim), tea.WithAltScreen()).Run()
	cancel()
	if rerr := <-done; err == nil {
		err = rerr
	}
	return err
}

type tickMsg time.Time

type model struct {
	app  *app.App
	sim  *led.Sim
	rng  *rand.Rand
	temp float64

	status  scheduler.Status
	power   []float64
	level   []float64
	message string
}

func newModel(a *app.App, sim *led.Sim) model {
	return model{app: a, sim: sim, rng: rand.New(rand.NewSource(time.Now().UnixNano())), temp: 35}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	s := m.app.Sched
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.message = ""
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "n":
			s.HandleEvent(scheduler.NextAnimation)
		case " ":
			s.HandleEvent(scheduler.Toggle)
		case "+", "=", "up":
			s.HandleEvent(scheduler.BrightnessUp)
		case "-", "_", "down":
			s.HandleEvent(scheduler.BrightnessDown)
		case "c":
			var c color.Color
			c.Randomize(m.rng, 255)
			s.SetColor(c)
			m.message = "color " + c.String()
		case "t":
			m.temp += 5
			s.SubmitTemperature(m.temp)
		case "T":
			m.temp -= 5
			s.SubmitTemperature(m.temp)
		case "r":
			s.ResetThermal()
			m.message = "thermal lock reset"
		case "w":
			if err := m.app.Tests.Start("rgb_channels"); err != nil {
				m.message = err.Error()
			}
		case "1", "2", "3", "4", "5", "6", "7", "8":
			k := render.Kind(key[0] - '1')
			s.SetAnimation(k)
			m.message = "animation " + k.String()
		}
	case tickMsg:
		m.status = s.Status()
		m.power = push(m.power, m.status.PowerMW/1000)
		m.level = push(m.level, float64(m.status.Brightness))
		return m, tick()
	}
	return m, nil
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m model) matrix() string {
	px, b := m.sim.Last()
	mp := m.app.Device.Mapper
	var sb strings.Builder
	for r := 0; r < mp.Rows(); r++ {
		for c := 0; c < mp.Cols(); c++ {
			addr := mp.Address(r, c)
			if addr >= len(px) {
				sb.WriteString("  ")
				continue
			}
			lit := px[addr].Scale(b)
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(lit.String())).Render("● "))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

func (m model) View() string {
	st := m.status
	var info strings.Builder
	info.WriteString(row("animation", st.Kind.String()))
	info.WriteString(row("color", st.Color.String()))
	info.WriteString(row("brightness", fmt.Sprintf("%d → %d", st.Brightness, st.Target)))
	info.WriteString(row("on", fmt.Sprint(st.On)))
	info.WriteString(row("temp", fmt.Sprintf("%.1f°C", m.temp)))
	info.WriteString(row("power", fmt.Sprintf("%.2f W", st.PowerMW/1000)))
	info.WriteString(row("frames", fmt.Sprint(st.Frames)))
	if st.Blending {
		info.WriteString(row("blend", "in progress"))
	}
	if st.Locked {
		info.WriteString(alertStyle.Render("THERMAL LOCK: "+st.Fault) + "\n")
	}
	if st.DriverError != "" {
		info.WriteString(alertStyle.Render("driver: "+st.DriverError) + "\n")
	}

	var graphs string
	if len(m.power) > 1 {
		graphs = asciigraph.Plot(m.level,
			asciigraph.Height(6), asciigraph.Width(60), asciigraph.Caption("brightness"))
		graphs += "\n\n" + asciigraph.Plot(m.power,
			asciigraph.Height(6), asciigraph.Width(60), asciigraph.Caption("power (W)"))
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(m.matrix()), "  ", info.String())
	help := helpStyle.Render("1-8 animation · n next · space toggle · +/- brightness · c color · t/T temp · r reset · w wiring test · q quit")
	if m.message != "" {
		help = valueStyle.Render(m.message) + "\n" + help
	}
	return headerStyle.Render("PIXELCLOCK SIM") + "\n" + top + "\n\n" + graphs + "\n" + help
}
