// Package refs implements the Secret-Reference Builder (spec.md §4.G): it
// scans the resolved parameters of every target for Kapitan secret
// references of the form "?{<type>:<ref>}" and materialises one reference
// file per unique reference under <catalog>/refs/, so Kapitan can later
// reveal the actual secret value without Commodore ever handling it.
package refs

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/value"
)

// Ref is a single unique secret reference found while walking a target's
// parameters. Keys records every parameter path the same reference string
// appeared under, matching the reference implementation's duplicate
// tracking (useful for debugging, not required for reffile content).
type Ref struct {
	Type string
	Ref  string
	Keys []string
}

func (r *Ref) refString() string { return r.Type + ":" + r.Ref }

// addKey records another parameter path this reference was found at.
func (r *Ref) addKey(key string) { r.Keys = append(r.Keys, key) }

// Builder accumulates the unique secret references found across one or more
// targets' resolved parameters.
type Builder struct {
	refs map[string]*Ref
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{refs: map[string]*Ref{}}
}

// Find recursively walks v (a target's resolved parameters tree), adding
// any secret reference found in a string leaf to the builder's result set.
func (b *Builder) Find(prefix string, v value.Value) {
	switch {
	case v.IsMap():
		for _, k := range v.Keys() {
			child, err := v.At(k)
			if err != nil {
				continue
			}
			b.Find(prefix+"/"+k, child)
		}
	case v.IsList():
		items, err := v.GetListAt("")
		if err == nil {
			for idx, item := range items {
				b.Find(fmt.Sprintf("%s[%d]", prefix, idx), item)
			}
		}
	case v.IsString():
		b.findLeaf(prefix, v.AsString())
	}
}

func (b *Builder) findLeaf(key, value string) {
	refType, ref, ok := parseSecretRef(value)
	if !ok {
		return
	}
	r := &Ref{Type: refType, Ref: ref}
	existing, ok := b.refs[r.refString()]
	if ok {
		existing.addKey(key)
		return
	}
	r.addKey(key)
	b.refs[r.refString()] = r
}

// secretRefOpen is the opening delimiter of a Kapitan secret reference
// "?{<type>:<ref>}", which may be embedded anywhere in a string value.
const secretRefOpen = "?{"

// parseSecretRef extracts the first "?{<type>:<ref>}" occurrence from s.
func parseSecretRef(s string) (refType, ref string, ok bool) {
	start := strings.Index(s, secretRefOpen)
	if start == -1 {
		return "", "", false
	}
	rest := s[start+len(secretRefOpen):]
	end := strings.Index(rest, "}")
	if end == -1 {
		return "", "", false
	}
	inner := rest[:end]
	parts := strings.SplitN(inner, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Refs returns the unique references found so far.
func (b *Builder) Refs() []*Ref {
	out := make([]*Ref, 0, len(b.refs))
	for _, r := range b.refs {
		out = append(out, r)
	}
	return out
}

// vaultkvDigest reproduces the reference implementation's "mangled" ref:
// the secret path and key (split on the last '/') base64-encoded together
// as "<secret-path>:<key>".
func vaultkvDigest(ref string) (string, error) {
	idx := strings.LastIndex(ref, "/")
	if idx == -1 {
		return "", cerrors.Ref("malformed vaultkv reference %q: expected <path>/<key>", ref)
	}
	secret, key := ref[:idx], ref[idx+1:]
	return base64.StdEncoding.EncodeToString([]byte(secret + ":" + key)), nil
}

// Write clears refDir and writes one reference file per unique reference
// found, using backend parameters taken from
// params.kapitan.secrets.<type> (spec.md §4.G). Only the vaultkv backend
// is implemented; any other type raises UnsupportedRefType.
func Write(refDir string, refsList []*Ref, params value.Value) error {
	if err := os.RemoveAll(refDir); err != nil {
		return cerrors.Ref("clearing %s: %v", refDir, err)
	}
	if err := os.MkdirAll(refDir, 0o755); err != nil {
		return cerrors.Ref("creating %s: %v", refDir, err)
	}

	for _, r := range refsList {
		if r.Type != "vaultkv" {
			return cerrors.UnsupportedRefType(r.Type)
		}
		backend, err := params.GetMapAt("kapitan.secrets." + r.Type)
		if err != nil {
			return cerrors.Ref("resolving backend parameters for %s: %v", r.refString(), err)
		}
		digest, err := vaultkvDigest(r.Ref)
		if err != nil {
			return err
		}

		doc := map[string]interface{}{
			"data":         digest,
			"encoding":     "original",
			"type":         r.Type,
			"vault_params": backend.Raw(),
		}

		out, err := yaml.Marshal(doc)
		if err != nil {
			return cerrors.Ref("encoding ref file for %s: %v", r.refString(), err)
		}

		path := filepath.Join(refDir, r.Ref)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return cerrors.Ref("creating parent directory for %s: %v", path, err)
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return cerrors.Ref("writing ref file %s: %v", path, err)
		}
	}
	return nil
}
