package host

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effectchain"
	"github.com/cwbudde/algo-rack/dsp/synth"
)

const (
	paramRoot   = "param"
	attrType    = "type"
	attrBypass  = "bypass"
	attrGainDB  = "gain_db"
	attrWave    = "waveform"
	attrAttack  = "attack_ms"
	attrDecay   = "decay_ms"
	attrLevel   = "level"
	voiceBlock  = "voice"
	outputBlock = "output"
)

// unitFunctions is the complete function set visible to unit expressions.
var unitFunctions = map[string]function.Function{
	"min":   stdlib.MinFunc,
	"max":   stdlib.MaxFunc,
	"abs":   stdlib.AbsoluteFunc,
	"floor": stdlib.FloorFunc,
	"ceil":  stdlib.CeilFunc,
	"pow":   stdlib.PowFunc,
	"log":   stdlib.LogFunc,
}

var (
	voiceAttrs  = []string{attrWave, attrAttack, attrDecay, attrLevel}
	outputAttrs = []string{attrGainDB}
)

// unitFile is the top-level schema of a declarative unit.
type unitFile struct {
	Stages []*stageBlock `hcl:"stage,block"`
	Voice  *plainBlock   `hcl:"voice,block"`
	Output *plainBlock   `hcl:"output,block"`
}

type stageBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type plainBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// exprBlock is a compiled block: its attributes and the parameter ids
// they read.
type exprBlock struct {
	name  string
	typ   string
	attrs hcl.Attributes
	deps  map[string]struct{}
}

func (b *exprBlock) dependsOn(id string) bool {
	if b == nil {
		return false
	}
	_, ok := b.deps[id]
	return ok
}

// hclProgram is a parsed and checked declarative unit.
type hclProgram struct {
	stages []*exprBlock
	voice  *exprBlock
	output *exprBlock
}

type voiceParams struct {
	waveform synth.Waveform
	attackMs float64
	decayMs  float64
	level    float64
}

// compileHCL parses d.Code and checks every expression against the
// descriptor's parameter ids and the registry's stage types.
func compileHCL(d *Descriptor, registry *effectchain.Registry) (*hclProgram, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL([]byte(d.Code), d.Name+".hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse: %w", diags)
	}

	var root unitFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("decode: %w", diags)
	}

	prog := &hclProgram{}
	seen := make(map[string]struct{}, len(root.Stages))

	for _, sb := range root.Stages {
		if _, dup := seen[sb.Name]; dup {
			return nil, fmt.Errorf("duplicate stage %q", sb.Name)
		}
		seen[sb.Name] = struct{}{}

		blk, err := compileBlock(d, sb.Name, sb.Body, nil)
		if err != nil {
			return nil, err
		}

		typeAttr, ok := blk.attrs[attrType]
		if !ok {
			return nil, fmt.Errorf("stage %q: missing %q", sb.Name, attrType)
		}
		var typ string
		if diags := gohcl.DecodeExpression(typeAttr.Expr, nil, &typ); diags.HasErrors() {
			return nil, fmt.Errorf("stage %q: %q must be a constant string: %w", sb.Name, attrType, diags)
		}
		if registry.Lookup(typ) == nil {
			return nil, fmt.Errorf("stage %q: %w: %s", sb.Name, effectchain.ErrUnknownEffect, typ)
		}
		delete(blk.attrs, attrType)
		blk.typ = typ

		prog.stages = append(prog.stages, blk)
	}

	if root.Voice != nil {
		if d.Type != TypeInstrument {
			return nil, errors.New("voice block requires an instrument unit")
		}
		blk, err := compileBlock(d, voiceBlock, root.Voice.Body, voiceAttrs)
		if err != nil {
			return nil, err
		}
		prog.voice = blk
	}

	if root.Output != nil {
		blk, err := compileBlock(d, outputBlock, root.Output.Body, outputAttrs)
		if err != nil {
			return nil, err
		}
		prog.output = blk
	}

	return prog, nil
}

// compileBlock collects a block's attributes and their parameter
// references. allowed, when non-nil, restricts attribute names.
func compileBlock(d *Descriptor, name string, body hcl.Body, allowed []string) (*exprBlock, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", name, diags)
	}

	blk := &exprBlock{name: name, attrs: maps.Clone(attrs), deps: map[string]struct{}{}}

	for attrName, attr := range attrs {
		if allowed != nil && !slices.Contains(allowed, attrName) {
			return nil, fmt.Errorf("%s: unsupported attribute %q", name, attrName)
		}

		for _, tr := range attr.Expr.Variables() {
			id, err := paramReference(tr)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, attrName, err)
			}
			if _, ok := d.Param(id); !ok {
				return nil, fmt.Errorf("%s.%s: unknown parameter %q", name, attrName, id)
			}
			blk.deps[id] = struct{}{}
		}
	}

	return blk, nil
}

// paramReference extracts <id> from a param.<id> traversal.
func paramReference(tr hcl.Traversal) (string, error) {
	if tr.RootName() != paramRoot {
		return "", fmt.Errorf("reference to %q outside the %s scope", tr.RootName(), paramRoot)
	}
	if len(tr) < 2 {
		return "", fmt.Errorf("bare %q reference; use %s.<id>", paramRoot, paramRoot)
	}
	step, ok := tr[1].(hcl.TraverseAttr)
	if !ok {
		return "", fmt.Errorf("use %s.<id> to reference parameters", paramRoot)
	}
	return step.Name, nil
}

// evalContext exposes only the parameter values and the fixed function set.
func evalContext(values map[string]float64) *hcl.EvalContext {
	obj := make(map[string]cty.Value, len(values))
	for id, v := range values {
		obj[id] = cty.NumberFloatVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{paramRoot: cty.ObjectVal(obj)},
		Functions: unitFunctions,
	}
}

func evalStage(blk *exprBlock, ctx *hcl.EvalContext) (effectchain.Params, error) {
	p := effectchain.Params{
		ID:   blk.name,
		Type: blk.typ,
		Num:  make(map[string]float64, len(blk.attrs)),
		Str:  map[string]string{},
	}

	for name, attr := range blk.attrs {
		val, err := evalAttr(blk, name, attr, ctx)
		if err != nil {
			return p, err
		}

		if name == attrBypass {
			on, err := truthy(val)
			if err != nil {
				return p, fmt.Errorf("stage %q: %s: %w", blk.name, attrBypass, err)
			}
			p.Bypassed = on
			continue
		}

		switch val.Type() {
		case cty.Number:
			f, err := toFloat(val)
			if err != nil {
				return p, fmt.Errorf("stage %q: %s: %w", blk.name, name, err)
			}
			p.Num[name] = f
		case cty.Bool:
			if val.True() {
				p.Num[name] = 1
			} else {
				p.Num[name] = 0
			}
		case cty.String:
			p.Str[name] = val.AsString()
		default:
			return p, fmt.Errorf("stage %q: %s: unsupported value type %s", blk.name, name, val.Type().FriendlyName())
		}
	}

	return p, nil
}

func evalVoice(blk *exprBlock, ctx *hcl.EvalContext) (voiceParams, error) {
	v := voiceParams{attackMs: 5, decayMs: 400, level: 0.22}
	if blk == nil {
		return v, nil
	}

	for name, attr := range blk.attrs {
		val, err := evalAttr(blk, name, attr, ctx)
		if err != nil {
			return v, err
		}

		if name == attrWave {
			var s string
			if err := gocty.FromCtyValue(val, &s); err != nil {
				return v, fmt.Errorf("voice: %s: %w", name, err)
			}
			w, err := synth.ParseWaveform(s)
			if err != nil {
				return v, fmt.Errorf("voice: %w", err)
			}
			v.waveform = w
			continue
		}

		f, err := toFloat(val)
		if err != nil {
			return v, fmt.Errorf("voice: %s: %w", name, err)
		}
		switch name {
		case attrAttack:
			v.attackMs = f
		case attrDecay:
			v.decayMs = f
		case attrLevel:
			v.level = f
		}
	}

	return v, nil
}

// evalOutputGain returns the linear output gain.
func evalOutputGain(blk *exprBlock, ctx *hcl.EvalContext) (float64, error) {
	if blk == nil {
		return 1, nil
	}

	attr, ok := blk.attrs[attrGainDB]
	if !ok {
		return 1, nil
	}

	val, err := evalAttr(blk, attrGainDB, attr, ctx)
	if err != nil {
		return 1, err
	}
	db, err := toFloat(val)
	if err != nil {
		return 1, fmt.Errorf("output: %s: %w", attrGainDB, err)
	}

	return core.DBToLinear(core.Clamp(db, -120, 24)), nil
}

func evalAttr(blk *exprBlock, name string, attr *hcl.Attribute, ctx *hcl.EvalContext) (cty.Value, error) {
	val, diags := attr.Expr.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("%s.%s: %w", blk.name, name, diags)
	}
	if val.IsNull() || !val.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("%s.%s: value is null or unknown", blk.name, name)
	}
	return val, nil
}

func toFloat(val cty.Value) (float64, error) {
	var f float64
	if err := gocty.FromCtyValue(val, &f); err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("non-finite number")
	}
	return f, nil
}

func truthy(val cty.Value) (bool, error) {
	switch val.Type() {
	case cty.Bool:
		return val.True(), nil
	case cty.Number:
		f, err := toFloat(val)
		if err != nil {
			return false, err
		}
		return f >= 0.5, nil
	default:
		return false, fmt.Errorf("expected bool or number, got %s", val.Type().FriendlyName())
	}
}
