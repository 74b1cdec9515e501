package plugin

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/qasm"
)

// Namespace is the import module name of every host function.
const Namespace = "qasm"

// ABIVersion is the version of the host ABI implemented by this package.
const ABIVersion = "1.0.0"

// DefaultABIConstraint accepts any guest built against ABI 1.x.
const DefaultABIConstraint = "^1.0"

// Guest exports.
const (
	ExportABIVersion  = "qasm_abi_version"
	ExportConstructor = "qasm_constructor"
	ExportCircuit     = "qasm_circuit"
	ExportRelease     = "qasm_release"
)

// HostABI lists the register functions the host provides, in WIT syntax.
// Indices are signed so that negative positions reach the bounds checks.
const HostABI = `
qalloc: func(n: u32) -> u32;
clalloc: func(n: u32) -> u32;
at: func(q: u32, i: s32) -> u32;
slice: func(q: u32, a: s32, b: s32) -> u32;
view: func(q: u32, width: u32) -> u32;
measure: func(q: u32, c: u32, offset: s32);
set-bit: func(c: u32, i: s32, v: u32);
get-bit: func(c: u32, i: s32) -> u32;
barrier: func(q: u32);
`

// GuestABI lists the functions a guest exports, in WIT syntax.
const GuestABI = `
qasm-abi-version: func() -> u32;
qasm-constructor: func() -> u32;
qasm-circuit: func(self: u32);
qasm-release: func(self: u32);
`

// Signature is a function type in WIT terms together with its lowering to
// core wasm value types.
type Signature struct {
	Name    string
	Params  []wit.Type
	Results []wit.Type
}

// Core lowers the signature to core wasm types. Only scalar WIT types are
// allowed in this ABI.
func (s Signature) Core() (params, results []api.ValueType, err error) {
	for _, t := range s.Params {
		vt, err := lower(t)
		if err != nil {
			return nil, nil, err
		}
		params = append(params, vt)
	}
	for _, t := range s.Results {
		vt, err := lower(t)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, vt)
	}
	return params, results, nil
}

func lower(t wit.Type) (api.ValueType, error) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.U64, wit.S64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	}
	return 0, errors.New(errors.PhaseLink, errors.KindUnsupported).
		Detail("WIT type %T has no scalar core lowering", t).
		Build()
}

var funcPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// ParseSignatures extracts `name: func(params) -> result;` declarations.
func ParseSignatures(text string) ([]Signature, error) {
	var sigs []Signature
	for _, match := range funcPattern.FindAllStringSubmatch(text, -1) {
		sig := Signature{Name: match[1]}

		if params := strings.TrimSpace(match[2]); params != "" {
			for _, p := range strings.Split(params, ",") {
				typ := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typ = p[idx+1:]
				}
				t, err := wit.ParseType(strings.TrimSpace(typ))
				if err != nil {
					return nil, errors.Wrap(errors.PhaseLink, errors.KindInvalidData, err, "parse param type of "+sig.Name)
				}
				sig.Params = append(sig.Params, t)
			}
		}

		if result := strings.TrimSpace(match[3]); result != "" && result != "()" {
			t, err := wit.ParseType(result)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseLink, errors.KindInvalidData, err, "parse result type of "+sig.Name)
			}
			sig.Results = []wit.Type{t}
		}

		sigs = append(sigs, sig)
	}
	if len(sigs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLink, "no functions found in WIT text")
	}
	return sigs, nil
}

// GateWIT renders the import signature of a library gate: its qubit handles
// as u32 followed by its angles as f64.
func GateWIT(def *qasm.GateDef) string {
	args := make([]string, 0, def.Qubits+def.Params)
	for i := 0; i < def.Qubits; i++ {
		args = append(args, fmt.Sprintf("q%d: u32", i))
	}
	for i := 0; i < def.Params; i++ {
		args = append(args, fmt.Sprintf("p%d: f64", i))
	}
	return fmt.Sprintf("%s: func(%s);", def.Name, strings.Join(args, ", "))
}

// PackVersion encodes a version the way qasm_abi_version returns it.
func PackVersion(major, minor, patch uint8) uint32 {
	return uint32(major)<<16 | uint32(minor)<<8 | uint32(patch)
}

// UnpackVersion decodes a packed ABI version.
func UnpackVersion(v uint32) *semver.Version {
	return semver.New(uint64(v>>16&0xff), uint64(v>>8&0xff), uint64(v&0xff), "", "")
}

// HostVersion returns ABIVersion packed for qasm_abi_version.
func HostVersion() uint32 {
	v := semver.MustParse(ABIVersion)
	return PackVersion(uint8(v.Major()), uint8(v.Minor()), uint8(v.Patch()))
}
