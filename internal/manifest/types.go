package manifest

// Module is the parsed form of a module manifest file.
type Module struct {
	Module      string         `yaml:"module" json:"module"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Author      string         `yaml:"author,omitempty" json:"author,omitempty"`
	Executors   []ExecutorSpec `yaml:"executors" json:"executors"`
}

// ExecutorSpec declares a single executor exported by a module.
type ExecutorSpec struct {
	Namespace    string   `yaml:"namespace" json:"namespace"`
	Name         string   `yaml:"name" json:"name"`
	Version      string   `yaml:"version" json:"version"`
	Description  string   `yaml:"description,omitempty" json:"description,omitempty"`
	Runtime      string   `yaml:"runtime" json:"runtime"`
	Entry        string   `yaml:"entry" json:"entry"`
	Checksum     string   `yaml:"checksum,omitempty" json:"checksum,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

// FullName returns "<namespace>.<name>" as declared.
func (s ExecutorSpec) FullName() string {
	return s.Namespace + "." + s.Name
}

// Runtime identifiers accepted in ExecutorSpec.Runtime.
const (
	RuntimeBuiltin = "builtin"
	RuntimeExec    = "exec"
	RuntimePlugin  = "plugin"
)

// ValidRuntimes contains all valid runtime values.
var ValidRuntimes = []string{
	RuntimeBuiltin,
	RuntimeExec,
	RuntimePlugin,
}

// FileExtensions lists the extensions recognized as module manifests.
var FileExtensions = []string{".yaml", ".yml", ".json"}
