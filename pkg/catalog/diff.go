package catalog

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	k8syaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	"github.com/projectsyn/commodore-go/pkg/gitdep"
)

// k8sObject is the minimal shape needed to sort a YAML stream's documents by
// (kind, namespace, name), as the Kapitan 0.29->0.30 migration diff does.
type k8sObject struct {
	kind      string
	namespace string
	name      string
	raw       []byte
}

func parseK8sStream(content []byte) ([]k8sObject, error) {
	reader := k8syaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(content)))
	var objs []k8sObject
	for {
		raw, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var doc map[string]interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		if doc == nil {
			// bare "null" documents are kept so the suppression pass can see
			// them removed; with an empty kind they sort first.
			objs = append(objs, k8sObject{raw: raw})
			continue
		}

		kind, _ := doc["kind"].(string)
		meta, _ := doc["metadata"].(map[string]interface{})
		namespace, _ := meta["namespace"].(string)
		name, _ := meta["name"].(string)
		objs = append(objs, k8sObject{kind: kind, namespace: namespace, name: name, raw: raw})
	}
	return objs, nil
}

func sortK8sObjects(objs []k8sObject) {
	sort.SliceStable(objs, func(i, j int) bool {
		a, b := objs[i], objs[j]
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		if a.namespace != b.namespace {
			return a.namespace < b.namespace
		}
		return a.name < b.name
	})
}

func canonicalizeK8sStream(content []byte) ([]byte, error) {
	objs, err := parseK8sStream(content)
	if err != nil {
		// Non-YAML or non-k8s content: pass through untouched.
		return content, nil
	}
	sortK8sObjects(objs)

	var buf bytes.Buffer
	for i, o := range objs {
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(bytes.TrimRight(o.raw, "\n"))
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// K8sSemanticDiff implements the Kapitan 0.29->0.30 migration diff function
// (spec.md §4.H step 4): both sides' YAML streams are parsed, their
// documents sorted by (kind, namespace, name) and re-emitted, then diffed.
// If every changed hunk is one of the three known non-semantic Tiller-to-
// Helm migration artefacts, the whole diff is suppressed.
//
// This is a textual heuristic, not full object equality: a change that
// happens to line up with one of the three suppressed shapes by coincidence
// would be suppressed too. That risk is accepted as designed (matches the
// real Kapitan migration's own heuristic) rather than worked around with a
// stronger semantic comparison.
func K8sSemanticDiff(path string, oldContent, newContent []byte) (string, bool) {
	canonOld, err1 := canonicalizeK8sStream(oldContent)
	canonNew, err2 := canonicalizeK8sStream(newContent)
	if err1 != nil || err2 != nil {
		return gitdep.DefaultDiff(path, oldContent, newContent)
	}

	if bytes.Equal(canonOld, canonNew) {
		return "", false
	}

	dmp := diffmatchpatch.New()
	oldLines, newLines, lineArray := dmp.DiffLinesToChars(string(canonOld), string(canonNew))
	diffs := dmp.DiffMain(oldLines, newLines, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	if allHunksNonSemantic(diffs) {
		return "", false
	}

	rendered, changed := gitdep.DefaultDiff(path, canonOld, canonNew)
	return rendered, changed
}

// allHunksNonSemantic walks the line-level diff and reports whether every
// non-equal run is one of the three known non-semantic changes: a removed
// `null` document separator, or a Tiller->Helm `managed-by`/`heritage`
// label rewrite.
func allHunksNonSemantic(diffs []diffmatchpatch.Diff) bool {
	sawChange := false
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			continue
		case diffmatchpatch.DiffDelete:
			sawChange = true
			removed := splitNonEmptyLines(d.Text)
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				added := splitNonEmptyLines(diffs[i+1].Text)
				if !pairNonSemantic(removed, added) {
					return false
				}
				i++
				continue
			}
			if !allNullSeparators(removed) {
				return false
			}
		case diffmatchpatch.DiffInsert:
			sawChange = true
			return false
		}
	}
	return sawChange
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func allNullSeparators(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "null" && strings.TrimSpace(l) != "---" {
			return false
		}
	}
	return len(lines) > 0
}

func pairNonSemantic(removed, added []string) bool {
	if len(removed) != len(added) {
		return false
	}
	for i := range removed {
		o, n := removed[i], added[i]
		if o == n {
			continue
		}
		if isTillerToHelm(o, n, "managed-by") || isTillerToHelm(o, n, "heritage") {
			continue
		}
		return false
	}
	return true
}

func isTillerToHelm(oldLine, newLine, label string) bool {
	oldWant := label + ": Tiller"
	newWant := label + ": Helm"
	return strings.Contains(oldLine, oldWant) && strings.Contains(newLine, newWant)
}
