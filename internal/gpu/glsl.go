package gpu

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const glslVersion = "#version 330 core\n"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AttributeName is the GLSL input name generated for a shader location.
func AttributeName(location int) string {
	return fmt.Sprintf("a_location%d", location)
}

func checkEntryPoint(stage string, mod ShaderModuleDescriptor, entry string) error {
	if !identifier.MatchString(entry) || entry == "main" {
		return fmt.Errorf("%w: %s entry point %q is not a valid function name", ErrValidation, stage, entry)
	}
	if !strings.Contains(mod.Code, entry+"(") {
		return fmt.Errorf("%w: module %q does not define %s entry point %q", ErrValidation, mod.Label, stage, entry)
	}
	return nil
}

// VertexStageSource expands the module into a GLSL 330 vertex shader. Each
// vertex attribute becomes a located input and main forwards the attributes,
// in location order, plus gl_VertexID to the entry point.
func VertexStageSource(v VertexState) (string, error) {
	if err := checkEntryPoint("vertex", v.Module, v.EntryPoint); err != nil {
		return "", err
	}

	var attrs []VertexAttribute
	for _, layout := range v.Buffers {
		attrs = append(attrs, layout.Attributes...)
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].ShaderLocation < attrs[j].ShaderLocation })

	var b strings.Builder
	b.WriteString(glslVersion)
	args := make([]string, 0, len(attrs)+1)
	for _, a := range attrs {
		fmt.Fprintf(&b, "layout(location = %d) in %s %s;\n", a.ShaderLocation, a.Format.GLSLType(), AttributeName(a.ShaderLocation))
		args = append(args, AttributeName(a.ShaderLocation))
	}
	args = append(args, "gl_VertexID")

	b.WriteString(v.Module.Code)
	fmt.Fprintf(&b, "\nvoid main() {\n\tgl_Position = %s(%s);\n}\n", v.EntryPoint, strings.Join(args, ", "))
	return b.String(), nil
}

// FragmentStageSource expands the module into a GLSL 330 fragment shader
// writing the entry point's result to the single colour target.
func FragmentStageSource(f FragmentState) (string, error) {
	if err := checkEntryPoint("fragment", f.Module, f.EntryPoint); err != nil {
		return "", err
	}
	if len(f.Targets) != 1 {
		return "", fmt.Errorf("%w: fragment stage supports exactly one color target, got %d", ErrValidation, len(f.Targets))
	}

	var b strings.Builder
	b.WriteString(glslVersion)
	b.WriteString("out vec4 fragColor;\n")
	b.WriteString(f.Module.Code)
	fmt.Fprintf(&b, "\nvoid main() {\n\tfragColor = %s();\n}\n", f.EntryPoint)
	return b.String(), nil
}
