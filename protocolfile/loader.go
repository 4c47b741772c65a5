// Package protocolfile loads protocol definitions from disk: walk a
// directory, dispatch by extension, warn-and-continue on a bad file
// rather than aborting the whole load.
package protocolfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ostepan8/agentbus/internal/corekit"
	"github.com/ostepan8/agentbus/protocol"
)

// fileProtocol mirrors the on-disk wire format. The loader accepts
// either `responses` or `response`.
type fileProtocol struct {
	Name                string                         `json:"name" yaml:"name"`
	Description         string                         `json:"description" yaml:"description"`
	TriggerPhrases      []string                       `json:"trigger_phrases" yaml:"trigger_phrases"`
	Arguments           map[string]interface{}         `json:"arguments" yaml:"arguments"`
	ArgumentDefinitions []protocol.ArgumentDefinition  `json:"argument_definitions" yaml:"argument_definitions"`
	Steps               []protocol.ProtocolStep        `json:"steps" yaml:"steps"`
	Responses           *protocol.ProtocolResponse     `json:"responses" yaml:"responses"`
	Response            *protocol.ProtocolResponse     `json:"response" yaml:"response"`
}

func (f *fileProtocol) toProtocol() *protocol.Protocol {
	p := protocol.New(f.Name, f.Description)
	p.TriggerPhrases = f.TriggerPhrases
	p.Arguments = f.Arguments
	p.ArgumentDefinitions = f.ArgumentDefinitions
	p.Steps = f.Steps
	if f.Responses != nil {
		p.Response = f.Responses
	} else {
		p.Response = f.Response
	}
	return p
}

// LoadFile parses a single protocol definition file, dispatching on
// extension (.json, .yaml, .yml).
func LoadFile(path string) (*protocol.Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, corekit.NewFrameworkErrorWithID("protocolfile.LoadFile", "io", path, err)
	}

	var fp fileProtocol
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fp); err != nil {
			return nil, corekit.NewFrameworkErrorWithID("protocolfile.LoadFile", "parse", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fp); err != nil {
			return nil, corekit.NewFrameworkErrorWithID("protocolfile.LoadFile", "parse", path, err)
		}
	default:
		return nil, corekit.NewFrameworkErrorWithID("protocolfile.LoadFile", "parse", path, fmt.Errorf("unsupported protocol file extension %q", ext))
	}

	return fp.toProtocol(), nil
}

// LoadDir loads every .json/.yaml/.yml protocol file in dir. A directory
// that does not exist yields no protocols and no error. A single bad file is
// logged via logger and skipped so the rest of the directory still loads.
func LoadDir(dir string, logger corekit.Logger) ([]*protocol.Protocol, error) {
	if logger == nil {
		logger = corekit.NoOpLogger{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, corekit.NewFrameworkErrorWithID("protocolfile.LoadDir", "io", dir, err)
	}

	var protocols []*protocol.Protocol
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := LoadFile(path)
		if err != nil {
			logger.Warn("failed to load protocol file", map[string]interface{}{"path": path, "error": err.Error()})
			continue
		}
		protocols = append(protocols, p)
	}
	return protocols, nil
}
