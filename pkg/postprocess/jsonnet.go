package postprocess

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/toolprovider"
)

// runJsonnetFilter locates the filter's script by relative path inside the
// component's worktree, invokes the jsonnet evaluator with variables
// {target, component, output_path}, and writes each top-level key of the
// evaluator's JSON output to <output>/<key>.yaml (spec.md §4.F).
func runJsonnetFilter(ctx context.Context, tools toolprovider.Provider, componentWorktree string, f Filter, outputPath string, vars map[string]string) error {
	script := filepath.Join(componentWorktree, f.FilterName)

	args := []string{"-J", componentWorktree}
	for k, v := range vars {
		args = append(args, "-V", k+"="+v)
	}
	args = append(args, "-V", "output_path="+outputPath)
	args = append(args, script)

	out, err := tools.Run(ctx, "jsonnet", componentWorktree, args...)
	if err != nil {
		return cerrors.Postprocess("evaluating jsonnet filter %s: %v", f.FilterName, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(out, &doc); err != nil {
		return cerrors.Postprocess("parsing jsonnet filter %s output: %v", f.FilterName, err)
	}

	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return cerrors.Postprocess("creating filter output directory: %v", err)
	}

	for key, raw := range doc {
		var asYAML interface{}
		if err := json.Unmarshal(raw, &asYAML); err != nil {
			return cerrors.Postprocess("decoding jsonnet filter %s key %q: %v", f.FilterName, key, err)
		}
		out, err := yaml.Marshal(asYAML)
		if err != nil {
			return cerrors.Postprocess("re-encoding jsonnet filter %s key %q: %v", f.FilterName, key, err)
		}
		if err := os.WriteFile(filepath.Join(outputPath, key+".yaml"), out, 0o644); err != nil {
			return cerrors.Postprocess("writing jsonnet filter %s key %q: %v", f.FilterName, key, err)
		}
	}
	return nil
}
