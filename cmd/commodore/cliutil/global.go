package cliutil

// Verbose and Yes back the root command's persistent --verbose/--yes
// flags. They live here, rather than in the root cmd package, so that
// subcommand packages can read them without importing cmd and creating an
// import cycle (cmd imports every subcommand package to register it).
var (
	Verbose bool
	Yes     bool
)
