package env

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFlag is the flag naming the config file.
const ConfigFlag = "config"

// Sections maps top level keys of a config file to the structs they
// are decoded into.
type Sections map[string]interface{}

var sections = Sections{}

// RegisterSection decodes the top level key name into v when a config
// file is loaded. v is usually a package's Default().
func RegisterSection(name string, v interface{}) {
	sections[name] = v
}

// Load decodes the YAML document data into the sections.
// Unknown keys are rejected so typos don't go unnoticed.
func (s Sections) Load(data []byte) error {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, ok := s[name]
		if !ok {
			return fmt.Errorf("unknown section %q", name)
		}
		node := doc[name]
		out, err := yaml.Marshal(&node)
		if err != nil {
			return fmt.Errorf("section %s: %w", name, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(out))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("section %s: %w", name, err)
		}
	}
	return nil
}

// LoadConfigFile loads the YAML file at path into the registered sections.
func LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := sections.Load(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ConfigFileFromArgs finds the value of -config in args.
func ConfigFileFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if val := strings.TrimPrefix(name, ConfigFlag+"="); val != name {
			return val
		}
		if name == ConfigFlag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// ParseFlags loads the config file named by -config and then parses the
// command line, so flags given explicitly override the file.
func ParseFlags() error {
	if flag.Lookup(ConfigFlag) == nil {
		flag.String(ConfigFlag, "", "YAML config file.")
	}
	if path := ConfigFileFromArgs(os.Args[1:]); path != "" {
		if err := LoadConfigFile(path); err != nil {
			return err
		}
	}
	flag.Parse()
	return nil
}
