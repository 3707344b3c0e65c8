// Package validation checks request bodies against embedded JSON schemas.
//
// Check never returns an error. It returns a Result whose Kind tells the
// caller whether the body was valid, failed the schema, or was not JSON.
package validation

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	SchemaLogin    = "login"
	SchemaRegister = "register"
)

//go:embed schemas/*.json
var schemasFS embed.FS

type Kind int

const (
	KindValid Kind = iota
	KindInvalid
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindValid:
		return "valid"
	case KindInvalid:
		return "invalid"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

type Result struct {
	Kind   Kind
	Issues []string
}

func (r Result) OK() bool {
	return r.Kind == KindValid
}

type Validator struct {
	schemas map[string]*jsonschema.Schema
	printer *message.Printer
}

// New compiles every schema under schemas/, keyed by file name without the
// .json extension.
func New() (*Validator, error) {
	files, err := fs.Glob(schemasFS, "schemas/*.json")
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	c := jsonschema.NewCompiler()
	names := make([]string, 0, len(files))
	for _, file := range files {
		raw, err := schemasFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", file, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", file, err)
		}
		name := strings.TrimSuffix(path.Base(file), ".json")
		if err := c.AddResource(name+".json", doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", file, err)
		}
		names = append(names, name)
	}

	schemas := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		sch, err := c.Compile(name + ".json")
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		schemas[name] = sch
	}

	return &Validator{
		schemas: schemas,
		printer: message.NewPrinter(language.English),
	}, nil
}

func (v *Validator) Check(schema string, body []byte) Result {
	sch, ok := v.schemas[schema]
	if !ok {
		return Result{Kind: KindInvalid, Issues: []string{fmt.Sprintf("no schema named %q", schema)}}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return Result{Kind: KindMalformed, Issues: []string{"request body is required"}}
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return Result{Kind: KindMalformed, Issues: []string{"request body is not valid JSON"}}
	}

	if err := sch.Validate(inst); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return Result{Kind: KindInvalid, Issues: []string{err.Error()}}
		}
		return Result{Kind: KindInvalid, Issues: v.issues(verr)}
	}

	return Result{Kind: KindValid}
}

func (v *Validator) issues(root *jsonschema.ValidationError) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, cause := range e.Causes {
				walk(cause)
			}
			return
		}

		field := strings.Join(e.InstanceLocation, ".")
		if required, ok := e.ErrorKind.(*kind.Required); ok {
			for _, missing := range required.Missing {
				add(joinField(field, missing) + " is required")
			}
			return
		}

		msg := strings.ToLower(e.ErrorKind.LocalizedString(v.printer))
		if field == "" {
			add(msg)
			return
		}
		add(field + " is invalid: " + msg)
	}
	walk(root)

	return out
}

func joinField(parent string, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}
