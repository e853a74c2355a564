// Package constants holds names shared by the command line and the
// configuration loader.
package constants

import "path/filepath"

// CLIName is the name of the command line binary.
const CLIName = "truss"

// ConfigFileNames are the configuration file names searched for, in order of
// preference within one directory.
var ConfigFileNames = []string{".truss.yml", ".truss.yaml", ".truss.toml"}

// GetWorkflowDir returns the directory GitHub reads workflows from.
func GetWorkflowDir() string {
	return filepath.Join(".github", "workflows")
}
