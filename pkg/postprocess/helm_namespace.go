package postprocess

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	k8syaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	"github.com/projectsyn/commodore-go/pkg/value"
)

// helmNamespaceFilter implements the reference built-in filter
// helm_namespace(namespace, create_namespace?, exclude_objects?) of
// spec.md §4.F: it rewrites every Kubernetes object's metadata.namespace
// under outputPath, skipping objects named in exclude_objects
// ("<kind>/<name>" pairs), and optionally emits a Namespace manifest.
func helmNamespaceFilter(outputPath string, args value.Value) error {
	namespace, err := args.GetStringAt("namespace")
	if err != nil {
		return err
	}
	createNamespace, _ := args.GetBoolAtOr("create_namespace", false)
	excludeList, _ := args.GetListAt("exclude_objects")
	exclude := make(map[string]bool, len(excludeList))
	for _, e := range excludeList {
		exclude[e.AsString()] = true
	}

	files, err := yamlFilesUnder(outputPath)
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := rewriteFileNamespace(f, namespace, exclude); err != nil {
			return err
		}
	}

	if createNamespace {
		nsDoc := map[string]interface{}{
			"apiVersion": "v1",
			"kind":       "Namespace",
			"metadata":   map[string]interface{}{"name": namespace},
		}
		data, err := yaml.Marshal(nsDoc)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(outputPath, "00_namespace.yaml"), data, 0o644)
	}
	return nil
}

func yamlFilesUnder(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func rewriteFileNamespace(path, namespace string, exclude map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	decoder := k8syaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))
	var out bytes.Buffer
	first := true
	for {
		raw, err := decoder.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var obj map[string]interface{}
		if err := yaml.Unmarshal(raw, &obj); err != nil {
			return err
		}

		if !isExcluded(obj, exclude) {
			setNamespace(obj, namespace)
		}

		rewritten, err := yaml.Marshal(obj)
		if err != nil {
			return err
		}
		if !first {
			out.WriteString("---\n")
		}
		first = false
		out.Write(rewritten)
	}

	return os.WriteFile(path, out.Bytes(), 0o644)
}

func isExcluded(obj map[string]interface{}, exclude map[string]bool) bool {
	if len(exclude) == 0 {
		return false
	}
	kind, _ := obj["kind"].(string)
	meta, _ := obj["metadata"].(map[string]interface{})
	name, _ := meta["name"].(string)
	return exclude[kind+"/"+name]
}

func setNamespace(obj map[string]interface{}, namespace string) {
	meta, ok := obj["metadata"].(map[string]interface{})
	if !ok {
		meta = map[string]interface{}{}
		obj["metadata"] = meta
	}
	meta["namespace"] = namespace
}
