package main

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/comalice/blockx"
	"github.com/comalice/blockx/binding"
	"github.com/comalice/blockx/block"
	"github.com/comalice/blockx/internal/app"
	"github.com/comalice/blockx/value"
)

// phaseTopology models water changing phase with temperature.
func phaseTopology() (*blockx.Topology, error) {
	temp := func(c *blockx.Context) float64 {
		f, _ := c.Event.Payload.(float64)
		return f
	}
	b := blockx.NewTopology("water")
	ice := b.State("Ice")
	liquid := b.State("Liquid")
	gas := b.State("Gas")
	plasma := b.State("Plasma")
	done := b.Final("Done")
	b.Transition(b.Initial(), ice)
	b.Transition(ice, liquid, blockx.OnChange("temperature"),
		blockx.WithGuard("aboveMelting", func(c *blockx.Context) bool { return temp(c) >= 0 }))
	b.Transition(liquid, gas, blockx.OnChange("temperature"),
		blockx.WithGuard("aboveBoiling", func(c *blockx.Context) bool { return temp(c) >= 100 }))
	b.Transition(liquid, ice, blockx.OnChange("temperature"),
		blockx.WithGuard("belowMelting", func(c *blockx.Context) bool { return temp(c) < 0 }))
	b.Transition(gas, plasma, blockx.OnChange("temperature"),
		blockx.WithGuard("aboveDecomposition", func(c *blockx.Context) bool { return temp(c) >= 5000 }))
	for _, v := range []*blockx.Vertex{ice, liquid, gas, plasma} {
		b.Transition(v, done, blockx.OnFinal())
	}
	return b.Build()
}

// heaterTopology switches the heater's power value on entry.
func heaterTopology(power *value.Value[float64]) (*blockx.Topology, error) {
	b := blockx.NewTopology("heater")
	off := b.State("Off", blockx.WithEnter(func(*blockx.Context) error {
		power.Set(0)
		return nil
	}))
	on := b.State("On", blockx.WithEnter(func(*blockx.Context) error {
		power.Set(1)
		return nil
	}))
	done := b.Final("Done")
	b.Transition(b.Initial(), off)
	b.Transition(off, on, blockx.OnSignal("heat"))
	b.Transition(on, off, blockx.OnSignal("idle"))
	b.Transition(off, done, blockx.OnFinal())
	b.Transition(on, done, blockx.OnFinal())
	return b.Build()
}

// roomTopology advances the room temperature on every sample tick.
func roomTopology(cfg app.ModelConfig, temperature, power *value.Value[float64]) (*blockx.Topology, error) {
	b := blockx.NewTopology("room")
	sim := b.State("Simulating",
		blockx.WithEnter(func(c *blockx.Context) error {
			c.StartTimer("sample", cfg.SamplePeriod, cfg.SamplePeriod)
			return nil
		}),
		blockx.WithExit(func(c *blockx.Context) error {
			c.StopTimer("sample")
			return nil
		}))
	done := b.Final("Done")
	b.Transition(b.Initial(), sim)
	b.Transition(sim, sim, blockx.OnTime("sample"), blockx.AsInternal(),
		blockx.WithEffect("step", func(*blockx.Context) error {
			temperature.Update(func(t float64) float64 {
				t += cfg.HeatRate * power.Get()
				t -= 0.05 * (t - cfg.Ambient)
				return math.Round(t*100) / 100
			})
			return nil
		}))
	b.Transition(sim, done, blockx.OnFinal())
	return b.Build()
}

// plant is the thermostat network: a simulated room, a heater, a
// controller constraint commanding the heater through a port, a comfort
// objective and a water block whose phase follows a temperature feed.
type plant struct {
	root        *block.Block
	water       *block.Block
	temperature *value.Value[float64]
	power       *value.Value[float64]
	controller  *binding.Constraint
	comfort     *binding.Objective
}

func buildPlant(a *app.App) (*plant, error) {
	cfg := a.Config.Model
	p := &plant{
		temperature: value.New("temperature", cfg.Ambient),
		power:       value.New("power", 0.0),
	}

	room := block.NewBuilder("room", a.BlockOptions()...).
		Values(func(b *block.Block) error { return b.AddValue(p.temperature) }).
		StateMachine(func(*block.Block) (*blockx.Topology, error) {
			return roomTopology(cfg, p.temperature, p.power)
		})

	heater := block.NewBuilder("heater", a.BlockOptions()...).
		Values(func(b *block.Block) error { return b.AddValue(p.power) }).
		StateMachine(func(*block.Block) (*blockx.Topology, error) { return heaterTopology(p.power) })

	water := block.NewBuilder("water", a.BlockOptions()...).
		StateMachine(func(*block.Block) (*blockx.Topology, error) { return phaseTopology() })

	root, err := block.NewBuilder("thermostat", a.BlockOptions()...).
		Part(room).
		Part(heater).
		Part(water).
		Ports(func(b *block.Block) error {
			_, err := b.AddPort("command")
			return err
		}).
		Constraints(func(b *block.Block) error {
			command, _ := b.Port("command")
			var last string
			p.controller = binding.New("controller", func(c *binding.Constraint) error {
				t, ok := binding.ParamAs[float64](c, "temperature")
				if !ok {
					return errors.New("temperature parameter is not a float")
				}
				signal := last
				switch {
				case t < cfg.Setpoint-0.5:
					signal = "heat"
				case t > cfg.Setpoint+0.5:
					signal = "idle"
				}
				if signal != last {
					command.Send(blockx.SignalEvent(signal, t))
					last = signal
				}
				c.NotifyObservers()
				return nil
			}, a.ConstraintOptions()...)
			if _, err := binding.Bind(p.controller, "temperature", p.temperature); err != nil {
				return err
			}

			opts := append(a.ConstraintOptions(), binding.WithPeriod(4*cfg.SamplePeriod))
			p.comfort = binding.NewObjective("comfort", func(c *binding.Constraint) (float64, error) {
				t, _ := binding.ParamAs[float64](c, "temperature")
				return math.Abs(cfg.Setpoint - t), nil
			}, opts...)
			if _, err := binding.Bind(p.comfort.Constraint, "temperature", p.temperature); err != nil {
				return err
			}

			b.AddConstraint(p.controller)
			b.AddConstraint(p.comfort)
			return nil
		}).
		Connectors(func(b *block.Block) error {
			command, _ := b.Port("command")
			h, ok := b.Part("heater")
			if !ok {
				return errors.New("heater part missing")
			}
			command.AddConnectedPeer(h)
			return nil
		}).
		StateMachine(func(*block.Block) (*blockx.Topology, error) { return supervisorTopology() }).
		Build()
	if err != nil {
		return nil, err
	}
	p.root = root
	p.water, _ = root.Part("water")
	return p, nil
}

// supervisorTopology gives the network root a machine that only waits for
// shutdown.
func supervisorTopology() (*blockx.Topology, error) {
	b := blockx.NewTopology("thermostat")
	running := b.State("Running")
	b.Transition(b.Initial(), running)
	b.Transition(running, b.Final("Stopped"), blockx.OnFinal())
	return b.Build()
}

// feed delivers the configured temperatures to the water block on the
// root block's pool, spaced by the sample period.
func (p *plant) feed(temperatures []float64, spacing time.Duration) {
	p.root.Go(func(ctx context.Context) error {
		for _, t := range temperatures {
			p.water.AcceptEvent(blockx.ChangeEvent("temperature", t))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(spacing):
			}
		}
		return nil
	})
}
