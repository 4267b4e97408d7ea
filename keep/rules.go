package keep

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/715d/jshrink/internal/classfile"
)

// ruleFile is the on-disk shape of a keep-rule file.
type ruleFile struct {
	Keep []rule `koanf:"keep"`
}

type rule struct {
	Class             string       `koanf:"class"`
	Annotation        string       `koanf:"annotation"`
	Extends           string       `koanf:"extends"`
	ExtendsAnnotation string       `koanf:"extends_annotation"`
	Access            []string     `koanf:"access"`
	MembersOnly       bool         `koanf:"members_only"`
	Conditional       bool         `koanf:"conditional"`
	Allow             []string     `koanf:"allow"`
	Fields            []memberRule `koanf:"fields"`
	Methods           []memberRule `koanf:"methods"`
}

type memberRule struct {
	Name       string   `koanf:"name"`
	Descriptor string   `koanf:"descriptor"`
	Annotation string   `koanf:"annotation"`
	Access     []string `koanf:"access"`
}

// accessFlagNames maps modifier names in rule files to access-flag bits. A
// leading "!" on a name requires the bit to be unset.
var accessFlagNames = map[string]uint16{
	"public":       classfile.AccPublic,
	"private":      classfile.AccPrivate,
	"protected":    classfile.AccProtected,
	"static":       classfile.AccStatic,
	"final":        classfile.AccFinal,
	"synchronized": classfile.AccSynchronized,
	"volatile":     classfile.AccVolatile,
	"transient":    classfile.AccTransient,
	"native":       classfile.AccNative,
	"interface":    classfile.AccInterface,
	"abstract":     classfile.AccAbstract,
	"strictfp":     classfile.AccStrict,
	"synthetic":    classfile.AccSynthetic,
	"annotation":   classfile.AccAnnotation,
	"enum":         classfile.AccEnum,
}

// LoadRules reads keep specifications from a YAML rule file.
func LoadRules(path string) ([]KeepSpecification, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading rules from %s: %w", path, err)
	}

	var rf ruleFile
	if err := k.Unmarshal("", &rf); err != nil {
		return nil, fmt.Errorf("parsing rules from %s: %w", path, err)
	}

	specs := make([]KeepSpecification, 0, len(rf.Keep))
	for i, r := range rf.Keep {
		spec, err := r.toSpecification()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (r *rule) toSpecification() (KeepSpecification, error) {
	spec := KeepSpecification{
		ClassSpecification: ClassSpecification{
			ClassName:             r.Class,
			AnnotationType:        r.Annotation,
			ExtendsClassName:      r.Extends,
			ExtendsAnnotationType: r.ExtendsAnnotation,
		},
		MarkClasses:       !r.MembersOnly,
		MarkConditionally: r.Conditional,
	}

	var err error
	spec.RequiredSetAccessFlags, spec.RequiredUnsetAccessFlags, err = parseAccess(r.Access)
	if err != nil {
		return spec, err
	}

	for _, f := range r.Fields {
		ms, err := f.toSpecification()
		if err != nil {
			return spec, err
		}
		spec.FieldSpecifications = append(spec.FieldSpecifications, ms)
	}
	for _, m := range r.Methods {
		ms, err := m.toSpecification()
		if err != nil {
			return spec, err
		}
		spec.MethodSpecifications = append(spec.MethodSpecifications, ms)
	}

	for _, allow := range r.Allow {
		switch strings.ToLower(allow) {
		case "shrinking":
			spec.AllowShrinking = true
		case "optimization":
			spec.AllowOptimization = true
		case "obfuscation":
			spec.AllowObfuscation = true
		default:
			return spec, fmt.Errorf("unknown allow value %q", allow)
		}
	}

	return spec, nil
}

func (r *memberRule) toSpecification() (MemberSpecification, error) {
	ms := MemberSpecification{
		Name:           r.Name,
		Descriptor:     r.Descriptor,
		AnnotationType: r.Annotation,
	}
	var err error
	ms.RequiredSetAccessFlags, ms.RequiredUnsetAccessFlags, err = parseAccess(r.Access)
	return ms, err
}

func parseAccess(names []string) (set, unset uint16, err error) {
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		negated := strings.HasPrefix(name, "!")
		flag, ok := accessFlagNames[strings.TrimPrefix(name, "!")]
		if !ok {
			return 0, 0, fmt.Errorf("unknown access modifier %q", name)
		}
		if negated {
			unset |= flag
		} else {
			set |= flag
		}
	}
	return set, unset, nil
}
