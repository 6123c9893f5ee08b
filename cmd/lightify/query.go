package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/store"
	"github.com/muurk/lightify/internal/ui"
)

func init() {
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(groupInfoCmd)
	rootCmd.AddCommand(lightsCmd)
	rootCmd.AddCommand(lightStatusCmd)
}

// groupsCmd lists groups with their members
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List the bridge's groups",
	Long: `List every group the bridge knows.

Fetches the group list, the members of each group and the status of every
light, then prints each group with its member count and whether any member
is on.`,
	Example: `  # List groups on the default bridge
  lightify groups

  # JSON output for scripting
  lightify groups --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			s.printer.PrintHeader("Groups", "lightify groups", s.bridgeParam())
			if err := s.bridge.Refresh(ctx); err != nil {
				return s.fail("Could not read groups", err)
			}
			return s.printer.PrintGroups(s.bridge.Groups(), s.bridge.Lights())
		})
	},
}

// groupInfoCmd shows one group and its member lights
var groupInfoCmd = &cobra.Command{
	Use:     "group-info <id|name>",
	Aliases: []string{"group"},
	Short:   "Show one group and its member lights",
	Example: `  lightify group-info 3
  lightify group-info Kitchen`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			s.printer.PrintHeader("Group", "lightify group-info "+args[0], s.bridgeParam())

			id, err := resolveGroupID(ctx, s, args[0])
			if err != nil {
				return s.fail("Unknown group", err)
			}
			if err := s.bridge.RequestGroupInfo(ctx, id); err != nil {
				return s.fail("Could not read group", err)
			}
			if err := s.bridge.RequestAllLightsStatus(ctx); err != nil {
				return s.fail("Could not read lights", err)
			}

			group, _ := s.bridge.Group(id)
			members := make([]store.Light, 0, len(group.Members))
			for _, l := range s.bridge.Lights() {
				if group.HasMember(l.Address) {
					members = append(members, l)
				}
			}

			if s.printer.JSON {
				return s.printer.PrintJSON(struct {
					Group  store.Group   `json:"group"`
					Lights []store.Light `json:"lights"`
				}{group, members})
			}
			s.printer.PrintSuccess(fmt.Sprintf("Group %d", group.ID),
				ui.Param{Key: "Name", Value: group.Name},
				ui.Param{Key: "Members", Value: strconv.Itoa(len(group.Members))},
			)
			return s.printer.PrintLights(members)
		})
	},
}

// resolveGroupID accepts a numeric id or a group name. Names need the group
// list, so it is fetched first.
func resolveGroupID(ctx context.Context, s *session, arg string) (uint16, error) {
	if id, err := strconv.ParseUint(strings.TrimPrefix(arg, "group:"), 0, 16); err == nil {
		return uint16(id), nil
	}
	if err := s.bridge.RequestGroupList(ctx); err != nil {
		return 0, err
	}
	g, ok := s.bridge.GroupByName(arg)
	if !ok {
		return 0, fmt.Errorf("%w: no group named %q", protocol.ErrInvalidTarget, arg)
	}
	return g.ID, nil
}

// lightsCmd lists every light
var lightsCmd = &cobra.Command{
	Use:   "lights",
	Short: "List the bridge's lights",
	Example: `  lightify lights
  lightify lights --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			s.printer.PrintHeader("Lights", "lightify lights", s.bridgeParam())
			if err := s.bridge.RequestAllLightsStatus(ctx); err != nil {
				return s.fail("Could not read lights", err)
			}
			return s.printer.PrintLights(s.bridge.Lights())
		})
	},
}

// lightStatusCmd queries a single light
var lightStatusCmd = &cobra.Command{
	Use:     "light-status <address|name>",
	Aliases: []string{"light"},
	Short:   "Query the current state of one light",
	Long: `Query one light directly instead of reading the all-lights status.

The address is the light's 8-byte MAC, e.g. 84:18:26:00:00:0b:2c:1d or
0x84182600000b2c1d. A light name is resolved from the all-lights status.`,
	Example: `  lightify light-status 84:18:26:00:00:0b:2c:1d
  lightify light-status "Desk Lamp"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			s.printer.PrintHeader("Light", "lightify light-status "+args[0], s.bridgeParam())

			address, err := resolveLightAddress(ctx, s, args[0])
			if err != nil {
				return s.fail("Unknown light", err)
			}
			if err := s.bridge.RequestLightStatus(ctx, address); err != nil {
				return s.fail("Could not read light", err)
			}
			light, _ := s.bridge.Light(address)
			return s.printer.PrintLight("Light status", light)
		})
	},
}

// resolveLightAddress accepts an address or a light name.
func resolveLightAddress(ctx context.Context, s *session, arg string) (uint64, error) {
	if address, err := protocol.ParseAddress(strings.TrimPrefix(arg, "light:")); err == nil {
		return address, nil
	}
	if err := s.bridge.RequestAllLightsStatus(ctx); err != nil {
		return 0, err
	}
	l, ok := s.bridge.LightByName(arg)
	if !ok {
		return 0, fmt.Errorf("%w: no light named %q", protocol.ErrInvalidTarget, arg)
	}
	return l.Address, nil
}
