package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
)

const (
	appName = "mobilesync"

	defaultBaseURL = "http://localhost:8080"
)

// Command interface that all devtool commands must implement
type Command interface {
	Name() string
	Description() string
	Run(args []string) error
}

// Registry maps command names to commands
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command. Registering the same name twice is a programming error.
func (r *Registry) Register(cmd Command) {
	if _, dup := r.commands[cmd.Name()]; dup {
		panic("devtool: duplicate command " + cmd.Name())
	}
	r.commands[cmd.Name()] = cmd
}

// Get retrieves a command by name
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns the registered command names in order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PrintHelp writes usage to stdout
func (r *Registry) PrintHelp() {
	r.writeHelp(os.Stdout)
}

func (r *Registry) writeHelp(out io.Writer) {
	fmt.Fprintf(out, "Usage: devtool <command> [args...]\n\nAvailable Commands:\n")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range r.Names() {
		fmt.Fprintf(tw, "  %s\t%s\n", name, r.commands[name].Description())
	}
	tw.Flush()
}
