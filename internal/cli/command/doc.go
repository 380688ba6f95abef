// Package command provides CLI command definitions for varmesh-watch.
//
// It uses urfave/cli/v2 for command parsing. Commands open local
// service files, register variable layouts, and either stream change
// events or read and write individual variables.
package command
