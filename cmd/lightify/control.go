package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/ui"
)

var fade int

func init() {
	for _, cmd := range []*cobra.Command{luminanceCmd, temperatureCmd, colourCmd} {
		cmd.Flags().IntVar(&fade, "fade", -1, "Transition time in tenths of a second (default: config default_fade)")
	}

	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(luminanceCmd)
	rootCmd.AddCommand(temperatureCmd)
	rootCmd.AddCommand(colourCmd)
}

const targetHelp = `A target is group:<id>, light:<address>, or the name of a group or light.
Names are looked up in the bridge's group list and all-lights status.`

var onCmd = &cobra.Command{
	Use:   "on <target>",
	Short: "Switch a group or light on",
	Long:  "Switch a group or light on.\n\n" + targetHelp,
	Example: `  lightify on group:3
  lightify on Kitchen
  lightify on light:84:18:26:00:00:0b:2c:1d`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, args[0], true)
	},
}

var offCmd = &cobra.Command{
	Use:     "off <target>",
	Short:   "Switch a group or light off",
	Long:    "Switch a group or light off.\n\n" + targetHelp,
	Example: `  lightify off group:3`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, args[0], false)
	},
}

func runSwitch(cmd *cobra.Command, arg string, on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	return withSession(cmd, func(ctx context.Context, s *session) error {
		s.printer.PrintHeader("Switch "+state, "lightify "+state+" "+arg, s.bridgeParam())

		target, err := resolveTarget(ctx, s, arg)
		if err != nil {
			return s.fail("Unknown target", err)
		}
		if err := s.bridge.SendOnOff(target, on); err != nil {
			return s.fail("Could not switch "+target.String(), err)
		}
		s.printer.PrintSuccess(fmt.Sprintf("%s switched %s", target, state),
			ui.Param{Key: "Target", Value: target.String()},
			ui.Param{Key: "Power", Value: ui.RenderPower(on)},
		)
		return nil
	})
}

var luminanceCmd = &cobra.Command{
	Use:     "luminance <target> <0-100>",
	Aliases: []string{"brightness", "dim"},
	Short:   "Set the luminance of a group or light",
	Long:    "Set luminance as a percentage.\n\n" + targetHelp,
	Example: `  lightify luminance Kitchen 40
  lightify luminance group:3 100 --fade 20`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseUint(args[1], 8, "luminance")
		if err != nil {
			return err
		}
		return runCommand(cmd, args[0], "Luminance", fmt.Sprintf("%d%%", level),
			func(s *session, target protocol.Target, fade uint16) error {
				return s.bridge.SendLuminance(target, uint8(level), fade)
			})
	},
}

var temperatureCmd = &cobra.Command{
	Use:     "temperature <target> <kelvin>",
	Aliases: []string{"temp"},
	Short:   "Set the colour temperature of a group or light",
	Long:    "Set colour temperature in kelvin (tunable white lights accept about 2200-6500).\n\n" + targetHelp,
	Example: `  lightify temperature Kitchen 2700`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kelvin, err := parseUint(args[1], 16, "temperature")
		if err != nil {
			return err
		}
		return runCommand(cmd, args[0], "Temperature", fmt.Sprintf("%dK", kelvin),
			func(s *session, target protocol.Target, fade uint16) error {
				return s.bridge.SendTemperature(target, uint16(kelvin), fade)
			})
	},
}

var colourCmd = &cobra.Command{
	Use:     "colour <target> <r,g,b>",
	Aliases: []string{"color", "rgb"},
	Short:   "Set the RGB colour of a group or light",
	Long:    "Set an RGB colour, each channel 0-255.\n\n" + targetHelp,
	Example: `  lightify colour Kitchen 255,120,0`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, g, b, err := parseRGB(args[1])
		if err != nil {
			return err
		}
		return runCommand(cmd, args[0], "Colour", fmt.Sprintf("%d,%d,%d", r, g, b),
			func(s *session, target protocol.Target, fade uint16) error {
				return s.bridge.SendColour(target, r, g, b, fade)
			})
	},
}

// runCommand resolves the target and sends one fading command to it.
func runCommand(cmd *cobra.Command, arg, what, value string, send func(*session, protocol.Target, uint16) error) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		s.printer.PrintHeader(what, "lightify "+cmd.Name()+" "+arg+" "+value, s.bridgeParam())

		target, err := resolveTarget(ctx, s, arg)
		if err != nil {
			return s.fail("Unknown target", err)
		}
		f, err := fadeTime(s)
		if err != nil {
			return s.fail("Invalid fade", err)
		}
		if err := send(s, target, f); err != nil {
			return s.fail(fmt.Sprintf("Could not set %s of %s", strings.ToLower(what), target), err)
		}
		s.printer.PrintSuccess(fmt.Sprintf("%s set on %s", what, target),
			ui.Param{Key: "Target", Value: target.String()},
			ui.Param{Key: what, Value: value},
			ui.Param{Key: "Fade", Value: fmt.Sprintf("%.1fs", float64(f)/10)},
		)
		return nil
	})
}

// resolveTarget parses explicit targets directly and looks names up after
// loading the group list and light status.
func resolveTarget(ctx context.Context, s *session, arg string) (protocol.Target, error) {
	if target, err := protocol.ParseTarget(arg); err == nil {
		return target, nil
	}
	if err := s.bridge.RequestGroupList(ctx); err != nil {
		return protocol.Target{}, err
	}
	if err := s.bridge.RequestAllLightsStatus(ctx); err != nil {
		return protocol.Target{}, err
	}
	return s.bridge.ResolveTarget(arg)
}

// fadeTime returns --fade, or the configured default when it is unset.
func fadeTime(s *session) (uint16, error) {
	if fade < 0 {
		return s.registry.Preferences.DefaultFade, nil
	}
	if fade > 0xFFFF {
		return 0, fmt.Errorf("%w: fade %d exceeds %d", protocol.ErrInvalidValue, fade, 0xFFFF)
	}
	return uint16(fade), nil
}

func parseUint(s string, bits int, what string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return v, nil
}

// parseRGB parses "r,g,b" or "#rrggbb".
func parseRGB(s string) (r, g, b uint8, err error) {
	s = strings.TrimSpace(s)
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		v, err := strconv.ParseUint(hex, 16, 24)
		if err != nil || len(hex) != 6 {
			return 0, 0, 0, fmt.Errorf("invalid colour %q: want #rrggbb", s)
		}
		return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid colour %q: want r,g,b", s)
	}
	var rgb [3]uint8
	for i, p := range parts {
		v, err := parseUint(p, 8, "colour channel")
		if err != nil {
			return 0, 0, 0, err
		}
		rgb[i] = uint8(v)
	}
	return rgb[0], rgb[1], rgb[2], nil
}
