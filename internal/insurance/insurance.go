// Package insurance is the sample domain served by default: products,
// policies sold for them, claims against policies and the beneficiaries
// of each claim.
//
// Three properties are computed on read rather than stored:
//
//	Policy.TotalCostAmount    product CostPerUnit x NumberOfUnits, rounded half-even to a whole amount
//	Policy.Active             PolicyStartDate <= today and (no PolicyEndDate or PolicyEndDate >= today)
//	Beneficiary.BeneficiaryAmount  claim ClaimAmount x BeneficiaryPercent / 100, rounded half-even
package insurance

import (
	_ "embed"
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/shopspring/decimal"

	"github.com/roach88/recordgraph/internal/compiler"
	"github.com/roach88/recordgraph/internal/directory"
	"github.com/roach88/recordgraph/internal/engine"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/seed"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed seed.yaml
var seedYAML []byte

// SchemaSource returns the embedded CUE schema.
func SchemaSource() []byte { return schemaCUE }

// SeedSource returns the embedded seed document.
func SeedSource() []byte { return seedYAML }

// Calendar supplies today's date for Policy.Active.
type Calendar interface {
	Today() time.Time
}

// SystemCalendar reads the local wall clock.
type SystemCalendar struct{}

// Today returns the current local date.
func (SystemCalendar) Today() time.Time { return time.Now() }

// Schema compiles and validates the embedded schema.
func Schema() (*ir.Schema, error) {
	v := cuecontext.New().CompileBytes(schemaCUE, cue.Filename("insurance/schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("insurance schema: %w", err)
	}
	schema, err := compiler.CompileSchema(v)
	if err != nil {
		return nil, fmt.Errorf("insurance schema: %w", err)
	}
	if errs := compiler.Validate(schema); len(errs) > 0 {
		return nil, fmt.Errorf("insurance schema: %w", compiler.ValidationErrors(errs))
	}
	return schema, nil
}

// Options returns the engine options that install the computed-field
// translators.
func Options(cal Calendar) []engine.Option {
	return []engine.Option{
		engine.WithTranslator("Policy", policyTranslator(cal)),
		engine.WithTranslator("Beneficiary", beneficiaryTranslator),
	}
}

// New builds an engine over the insurance schema. With withSeed the
// embedded sample records are loaded.
func New(cal Calendar, withSeed bool, opts ...engine.Option) (*engine.Engine, error) {
	schema, err := Schema()
	if err != nil {
		return nil, err
	}
	e, err := engine.New(schema, append(Options(cal), opts...)...)
	if err != nil {
		return nil, err
	}
	if !withSeed {
		return e, nil
	}

	data, err := seed.Parse(seedYAML)
	if err != nil {
		return nil, fmt.Errorf("insurance seed: %w", err)
	}
	if _, err := seed.Apply(e, data); err != nil {
		return nil, fmt.Errorf("insurance seed: %w", err)
	}
	return e, nil
}

func policyTranslator(cal Calendar) directory.Translator {
	return func(d *directory.Directory, rec *directory.Record) (ir.IRObject, error) {
		obj := rec.Fields.Clone()

		obj["TotalCostAmount"] = ir.IRNull{}
		products, err := d.FollowNav(kindOf(d, "Policy"), rec, "Product")
		if err != nil {
			return nil, err
		}
		if len(products) == 1 {
			cost, okCost := products[0].Get("CostPerUnit").(ir.IRNumber)
			units, okUnits := rec.Get("NumberOfUnits").(ir.IRNumber)
			if okCost && okUnits {
				obj["TotalCostAmount"] = ir.NewIRNumber(cost.Mul(units.Decimal).RoundBank(0))
			}
		}

		obj["Active"] = ir.IRBool(Active(rec.Get("PolicyStartDate"), rec.Get("PolicyEndDate"), cal.Today()))
		return obj, nil
	}
}

// Active reports whether a policy covers today: it has started and has not
// ended before today. A missing start date means inactive.
func Active(start, end ir.IRValue, today time.Time) bool {
	day := ir.DateOf(today)
	s, ok := start.(ir.IRDate)
	if !ok || s.After(day.Time) {
		return false
	}
	if e, ok := end.(ir.IRDate); ok && e.Before(day.Time) {
		return false
	}
	return true
}

var hundred = decimal.NewFromInt(100)

func beneficiaryTranslator(d *directory.Directory, rec *directory.Record) (ir.IRObject, error) {
	obj := rec.Fields.Clone()
	obj["BeneficiaryAmount"] = ir.IRNull{}

	claims, err := d.FollowNav(kindOf(d, "Beneficiary"), rec, "Claim")
	if err != nil {
		return nil, err
	}
	if len(claims) == 1 {
		amount, okAmount := claims[0].Get("ClaimAmount").(ir.IRNumber)
		percent, okPercent := rec.Get("BeneficiaryPercent").(ir.IRNumber)
		if okAmount && okPercent {
			share := amount.Mul(percent.Decimal).Div(hundred)
			obj["BeneficiaryAmount"] = ir.NewIRNumber(share.RoundBank(0))
		}
	}
	return obj, nil
}

func kindOf(d *directory.Directory, typeName string) directory.Kind {
	k, _ := d.Kind(typeName)
	return k
}
