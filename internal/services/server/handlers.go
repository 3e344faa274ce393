package server

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/clock"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
)

var (
	startVerbs  = []string{"greenhouses", "subscribe", "saveserverstate", "speedup", "slowdown", "clockrate", "help", "exit"}
	listVerbs   = []string{"back", "help", "newgreenhouse", "listgreenhouses"}
	detailVerbs = []string{
		"addsensor", "removesensor", "addappliance", "removeappliance",
		"sensorreading", "appliancereading", "toggleappliance",
		"newtemptarget", "newhumiditytarget", "monitor", "man", "help", "back",
	}
)

// parse replies on its own when the line cannot be handled in the current
// menu; ok reports whether cmd is usable.
func (s *session) parse(line string, allowed []string) (cmd Command, ok bool, err error) {
	cmd, perr := Parse(line)
	switch {
	case cmd.Verb == "":
		return cmd, false, nil
	case errors.Is(perr, ErrUnknownCommand), !slices.Contains(allowed, cmd.Verb):
		return cmd, false, s.reply(unknownCommand)
	case errors.Is(perr, greenhouse.ErrUnknownKind):
		return cmd, false, s.reply(fmt.Sprintf("Could not %s: %v. Try 'man -%s' for help.", cmd.Verb, perr, cmd.Verb))
	case perr != nil:
		return cmd, false, s.reply(fmt.Sprintf("Invalid arguments: %v. Try 'man -%s' for help.", perr, cmd.Verb))
	}
	return cmd, true, nil
}

// ====== Start menu ======

func (s *session) handleStart(line string) error {
	cmd, ok, err := s.parse(line, startVerbs)
	if !ok {
		return err
	}
	switch cmd.Verb {
	case "greenhouses":
		s.state = stateList
		return s.showList()
	case "subscribe":
		s.srv.broadcast.add(s.out)
		return s.reply("Subscribed to server notifications.")
	case "saveserverstate":
		n, err := s.srv.SaveState()
		if err != nil {
			return s.reply(fmt.Sprintf("Could not save server state: %v", err))
		}
		return s.reply(fmt.Sprintf("Server state saved (%d greenhouses).", n))
	case "speedup", "slowdown":
		change := s.srv.clock.SpeedUp
		if cmd.Verb == "slowdown" {
			change = s.srv.clock.SlowDown
		}
		switch err := change(cmd.Arg(0).Int); {
		case errors.Is(err, clock.ErrInvalidJump):
			return s.reply("Jump must be 1 or 2.")
		case errors.Is(err, clock.ErrNotRunning):
			return s.reply("The clock is not running.")
		}
		return s.reply(s.clockRate())
	case "clockrate":
		return s.reply(s.clockRate())
	case "help":
		return s.reply(startHelp...)
	case "exit":
		s.state = stateDisconnected
		return s.reply("Goodbye.")
	}
	return nil
}

func (s *session) clockRate() string {
	return fmt.Sprintf("Clock rate: %d (one tick every %s).", s.srv.clock.Rate(), s.srv.clock.Interval())
}

// ====== Greenhouse list ======

func (s *session) handleList(line string) error {
	if fields := strings.Fields(line); len(fields) == 1 {
		if id, err := strconv.Atoi(fields[0]); err == nil {
			return s.openGreenhouse(id)
		}
	}
	cmd, ok, err := s.parse(line, listVerbs)
	if !ok {
		return err
	}
	switch cmd.Verb {
	case "back":
		s.state = stateStart
		return s.reply("Menu:", "Commands: greenhouses | subscribe | saveserverstate | speedup | slowdown | clockrate | help | exit")
	case "help":
		return s.reply(listHelp...)
	case "newgreenhouse":
		gh := s.srv.CreateGreenhouse()
		return s.reply(fmt.Sprintf("New greenhouse created: Greenhouse %d.", gh.ID()))
	case "listgreenhouses":
		return s.showList()
	}
	return nil
}

func (s *session) showList() error {
	lines := []string{"Available greenhouses:"}
	list := s.srv.registry.List()
	if len(list) == 0 {
		lines = append(lines, "No greenhouses available. Use 'newgreenhouse' to create one.")
	}
	for _, gh := range list {
		lines = append(lines, gh.Summary())
	}
	return s.reply(append(lines, "Type 'help' for commands.")...)
}

func (s *session) openGreenhouse(id int) error {
	if _, ok := s.srv.registry.Get(id); !ok {
		return s.reply(ghNotFound)
	}
	s.state = stateDetail
	s.ghID = id
	return s.reply(fmt.Sprintf("Greenhouse %d", id), detailCommands)
}

// ====== Greenhouse detail ======

// target resolves the optional trailing greenhouse id, defaulting to the
// open greenhouse. Lookup is always by id.
func (s *session) target(cmd Command) (*greenhouse.GreenHouse, bool) {
	id := s.ghID
	schema := schemas[cmd.Verb]
	if n := len(schema); n > 0 && schema[n-1].Name == "greenhouse" && cmd.Args[n-1].Set {
		id = cmd.Args[n-1].Int
	}
	return s.srv.registry.Get(id)
}

func (s *session) handleDetail(line string) error {
	cmd, ok, err := s.parse(line, detailVerbs)
	if !ok {
		return err
	}
	switch cmd.Verb {
	case "help":
		return s.reply(detailHelp...)
	case "back":
		s.state = stateList
		return s.showList()
	case "man":
		page, ok := manual[cmd.Arg(0).Word]
		if !ok {
			return s.reply(fmt.Sprintf("No manual entry for '%s'.", cmd.Arg(0).Word))
		}
		return s.reply(page...)
	}

	gh, ok := s.target(cmd)
	if !ok {
		return s.reply(ghNotFound)
	}

	switch cmd.Verb {
	case "addsensor":
		added := make([]string, 0, len(cmd.Arg(0).Sensors))
		for _, k := range cmd.Arg(0).Sensors {
			sn, err := gh.AddSensor(k)
			if err != nil {
				return s.reply(fmt.Sprintf("Could not add sensor: %v. Try 'man -addsensor' for help.", err))
			}
			added = append(added, fmt.Sprintf("%s id=%d", k.Label(), sn.ID()))
		}
		return s.reply("Sensor(s) added successfully: " + strings.Join(added, ", "))

	case "removesensor":
		if err := gh.RemoveSensor(cmd.Arg(0).Int); err != nil {
			return s.reply(fmt.Sprintf("Sensor %d not found in Greenhouse %d.", cmd.Arg(0).Int, gh.ID()))
		}
		return s.reply("Sensor removed successfully.")

	case "addappliance":
		added := make([]string, 0, len(cmd.Arg(0).Appliances))
		for _, k := range cmd.Arg(0).Appliances {
			a, err := gh.AddAppliance(k)
			if err != nil {
				return s.reply(fmt.Sprintf("Could not add appliance: %v. Try 'man -addappliance' for help.", err))
			}
			added = append(added, fmt.Sprintf("%s id=%d", k.Label(), a.ID()))
		}
		return s.reply("Appliance(s) added successfully: " + strings.Join(added, ", "))

	case "removeappliance":
		if err := gh.RemoveAppliance(cmd.Arg(0).Int); err != nil {
			return s.reply(fmt.Sprintf("Appliance %d not found in Greenhouse %d.", cmd.Arg(0).Int, gh.ID()))
		}
		return s.reply("Appliance removed successfully.")

	case "sensorreading":
		if cmd.Arg(0).All {
			dump := gh.SensorDump()
			if len(dump) == 0 {
				return s.reply(fmt.Sprintf("No sensors in Greenhouse %d.", gh.ID()))
			}
			return s.reply(dump...)
		}
		sn, ok := gh.Sensor(cmd.Arg(0).Int)
		if !ok {
			return s.reply(fmt.Sprintf("Sensor %d not found in Greenhouse %d.", cmd.Arg(0).Int, gh.ID()))
		}
		return s.reply(sn.String())

	case "appliancereading":
		if cmd.Arg(0).All {
			dump := gh.ApplianceDump()
			if len(dump) == 0 {
				return s.reply(fmt.Sprintf("No appliances in Greenhouse %d.", gh.ID()))
			}
			return s.reply(dump...)
		}
		a, ok := gh.Appliance(cmd.Arg(0).Int)
		if !ok {
			return s.reply(fmt.Sprintf("Appliance %d not found in Greenhouse %d.", cmd.Arg(0).Int, gh.ID()))
		}
		return s.reply(a.String())

	case "toggleappliance":
		a, err := gh.ActuateAppliance(cmd.Arg(0).Int)
		if err != nil {
			return s.reply(fmt.Sprintf("Appliance %d not found in Greenhouse %d.", cmd.Arg(0).Int, gh.ID()))
		}
		return s.reply("Appliance toggled successfully: " + a.String())

	case "newtemptarget":
		if err := gh.SetTargetTemperature(cmd.Arg(0).Float); err != nil {
			return s.reply("Invalid temperature target provided. Use a finite number.")
		}
		return s.reply("Temperature target updated successfully.")

	case "newhumiditytarget":
		if err := gh.SetTargetHumidity(cmd.Arg(0).Float); err != nil {
			return s.reply("Invalid humidity target provided. Use a value between 0 and 1.")
		}
		return s.reply("Humidity target updated successfully.")

	case "monitor":
		s.srv.monitor.Subscribe(gh.ID(), s.out)
		s.state = stateMonitor
		s.ghID = gh.ID()
		return s.reply(fmt.Sprintf("Sensor monitoring started for Greenhouse %d", gh.ID()), monitorStopHint)
	}
	return nil
}

// ====== Monitor ======

func (s *session) handleMonitor(line string) error {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "stop", "back":
		s.srv.monitor.Unsubscribe(s.out)
		s.state = stateDetail
		return s.reply("Sensor monitoring stopped.")
	case "":
		return nil
	}
	return s.reply(monitorStopHint)
}
