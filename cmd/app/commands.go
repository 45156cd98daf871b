package main

import (
	"github.com/urfave/cli/v3"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getKeyCommands()...)
	return cmds
}

// formatFlag is shared by every command that prints results.
func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

// operatorFlag identifies who runs a lifecycle command; it is recorded as the key issuer.
func operatorFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "operator",
		Aliases: []string{"o"},
		Value:   "cli",
		Usage:   "Operator recorded as the key issuer",
		Sources: cli.EnvVars("AUTHKEYS_OPERATOR", "USER"),
	}
}
