// Package ucli provides a cli builder implementation based on the urfave/cli
// library.
package ucli

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/auctioneer/cli"
)

// Builder implements a cli builder based on urfave/cli
//
// - implements cli.Builder
type Builder struct {
	commands []*cmdBuilder
	name     string
	usage    string
	action   cli.Action
	flags    []cli.Flag
}

// NewBuilder returns a new initialized builder. Action allows one to define a
// primary action, but can be nil if we only needs to define commands. Flags
// provides the global flags available from all the commands/subcommands.
func NewBuilder(name string, action cli.Action, flags ...cli.Flag) cli.Builder {
	return &Builder{
		name:   name,
		action: action,
		flags:  flags,
	}
}

// SetUsage sets the one-line description of the application.
func (b *Builder) SetUsage(value string) {
	b.usage = value
}

// Build implements cli.builder.
func (b Builder) Build() cli.Application {
	app := &urfave.App{
		Name:     b.name,
		Usage:    b.usage,
		Commands: buildCommand(b.commands),
		Action:   makeAction(b.action),
		Flags:    buildFlags(b.flags),
	}

	app.Setup()

	return app
}

// SetCommand implements cli.Builder.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	cmd := &cmdBuilder{
		name: name,
	}
	b.commands = append(b.commands, cmd)

	return cmd
}

// cmdBuilder is the struct provided to build commands.
//
// - implements cli.CommandBuilder
type cmdBuilder struct {
	name        string
	description string
	action      cli.Action
	flags       []urfave.Flag
	subcommands []*cmdBuilder
}

// SetDescription implements cli.CommandBuilder.
func (b *cmdBuilder) SetDescription(value string) {
	b.description = value
}

// SetFlags implements cli.CommandBuilder.
func (b *cmdBuilder) SetFlags(flags ...cli.Flag) {
	b.flags = buildFlags(flags)
}

// SetAction implements cli.CommandBuilder.
func (b *cmdBuilder) SetAction(action cli.Action) {
	b.action = action
}

// SetSubCommand implements cli.CommandBuilder.
func (b *cmdBuilder) SetSubCommand(name string) cli.CommandBuilder {
	builder := &cmdBuilder{
		name: name,
	}
	b.subcommands = append(b.subcommands, builder)

	return builder
}

// buildFlags converts cli.Flag to their corresponding urfave/cli. The
// environment variables of a flag are forwarded so that a value can come from
// the environment, for instance a .env file loaded by the binary.
func buildFlags(flags []cli.Flag) []urfave.Flag {
	res := make([]urfave.Flag, len(flags))

	for i, f := range flags {
		res[i] = buildFlag(f)
	}

	return res
}

func buildFlag(f cli.Flag) urfave.Flag {
	switch e := f.(type) {
	case cli.StringFlag:
		return &urfave.StringFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			EnvVars:  e.EnvVars,
			Value:    e.Value,
		}
	case cli.StringSliceFlag:
		return &urfave.StringSliceFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			EnvVars:  e.EnvVars,
			Value:    urfave.NewStringSlice(e.Value...),
		}
	case cli.DurationFlag:
		return &urfave.DurationFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			EnvVars:  e.EnvVars,
			Value:    e.Value,
		}
	case cli.IntFlag:
		return &urfave.IntFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			EnvVars:  e.EnvVars,
			Value:    e.Value,
		}
	case cli.BoolFlag:
		return &urfave.BoolFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			EnvVars:  e.EnvVars,
			Value:    e.Value,
		}
	default:
		panic(fmt.Sprintf("flag type '%T' not supported", f))
	}
}

// buildCommand recursively builds the commands from a cmdBuilder struct to a
// urfave commands.
func buildCommand(cmds []*cmdBuilder) []*urfave.Command {
	commands := make([]*urfave.Command, len(cmds))

	for i, cmd := range cmds {
		commands[i] = &urfave.Command{
			Name:        cmd.name,
			Usage:       cmd.description,
			Action:      makeAction(cmd.action),
			Flags:       cmd.flags,
			Subcommands: buildCommand(cmd.subcommands),
		}
	}

	return commands
}

// makeAction transforms a cli.Action to its urfave form.
func makeAction(action cli.Action) urfave.ActionFunc {
	if action != nil {
		return func(ctx *urfave.Context) error {
			return action(ctx)
		}
	}
	return nil
}
