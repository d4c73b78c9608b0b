package questionnaire

import (
	"math"
	"strings"

	"github.com/wellness/wellness/internal/platform/httputil"
)

// Answers are the self-reported questionnaire inputs. Enum answers that are
// absent fall back to the middle of their scale; unrecognised values score 0.
type Answers struct {
	Sleep    *string            `json:"sleep,omitempty"`
	Activity *string            `json:"activity,omitempty"`
	Stress   *string            `json:"stress,omitempty"`
	HeightCm httputil.FlexFloat `json:"height_cm"`
	WeightKg httputil.FlexFloat `json:"weight_kg"`
	HbA1cPct httputil.FlexFloat `json:"hba1c_pct"`
}

const (
	defaultSleep    = "6-7"
	defaultActivity = "3-4"
	defaultStress   = "Sometimes"
)

const (
	BMIUnder  = "under"
	BMINormal = "normal"
	BMIOver   = "over"
	BMIObese  = "obese"

	HbA1cNormal   = "normal"
	HbA1cPre      = "pre"
	HbA1cDiabetes = "diabetes"
)

const (
	RiskLow      = "Low Risk"
	RiskModerate = "Moderate Risk"
	RiskHigh     = "High Risk"
)

var (
	sleepPoints    = map[string]int{"<4": 3, "4-5": 2, "6-7": 1, "8+": 0}
	activityPoints = map[string]int{"0": 3, "1-2": 2, "3-4": 1, "5+": 0}
	stressPoints   = map[string]int{"Always/Often": 3, "Sometimes": 2, "Rarely/Never": 0}
	bmiPoints      = map[string]int{BMIUnder: 1, BMINormal: 0, BMIOver: 1, BMIObese: 3}
	hba1cPoints    = map[string]int{HbA1cNormal: 0, HbA1cPre: 2, HbA1cDiabetes: 3}
)

type Points struct {
	Sleep    int `json:"sleep"`
	Activity int `json:"activity"`
	Stress   int `json:"stress"`
	BMI      int `json:"bmi"`
	HbA1c    int `json:"hba1c"`
}

// Total is the sum of the five factor points.
func (p Points) Total() int {
	return p.Sleep + p.Activity + p.Stress + p.BMI + p.HbA1c
}

// Result is the computed part of a submission.
type Result struct {
	BMI             *float64 `json:"bmi"`
	BMIBucket       *string  `json:"bmi_bucket"`
	Points          Points   `json:"points"`
	TotalScore      int      `json:"total_score"`
	RiskCategory    string   `json:"risk_category"`
	SuggestedAction string   `json:"suggested_action"`
	Remarks         string   `json:"remarks"`
}

// CalcBMI returns weight / height(m)^2 rounded to one decimal, or nil when
// either value is missing or zero, height is not positive, or the result is
// not finite.
func CalcBMI(heightCm, weightKg *float64) *float64 {
	if heightCm == nil || weightKg == nil || *heightCm == 0 || *weightKg == 0 {
		return nil
	}
	h := *heightCm / 100
	if h <= 0 {
		return nil
	}
	bmi := *weightKg / (h * h)
	if math.IsNaN(bmi) || math.IsInf(bmi, 0) {
		return nil
	}
	bmi = math.Round(bmi*10) / 10
	return &bmi
}

// BucketBMI classifies a BMI; nil yields "".
func BucketBMI(bmi *float64) string {
	switch {
	case bmi == nil:
		return ""
	case *bmi < 18.5:
		return BMIUnder
	case *bmi < 25:
		return BMINormal
	case *bmi < 30:
		return BMIOver
	default:
		return BMIObese
	}
}

// BucketHbA1c classifies an HbA1c percentage; a missing value is normal.
func BucketHbA1c(pct *float64) string {
	switch {
	case pct == nil || *pct < 5.7:
		return HbA1cNormal
	case *pct < 6.5:
		return HbA1cPre
	default:
		return HbA1cDiabetes
	}
}

// RiskFromTotal maps a total score to its category and advisory action.
func RiskFromTotal(total int) (category, action string) {
	switch {
	case total <= 5:
		return RiskLow, "Maintain healthy lifestyle."
	case total <= 10:
		return RiskModerate, "Consider lifestyle improvements; consult if needed."
	default:
		return RiskHigh, "Strongly recommend medical consultation and intervention."
	}
}

func remarks(p Points, bmiBucket string) string {
	var notes []string
	if p.Sleep >= 2 {
		notes = append(notes, "Sleep pattern suboptimal.")
	}
	if p.Activity >= 2 {
		notes = append(notes, "Low physical activity.")
	}
	if p.Stress >= 2 {
		notes = append(notes, "High perceived stress.")
	}
	switch bmiBucket {
	case BMIUnder:
		notes = append(notes, "BMI underweight.")
	case BMIOver:
		notes = append(notes, "BMI overweight.")
	case BMIObese:
		notes = append(notes, "BMI obese.")
	}
	if p.HbA1c >= 2 {
		notes = append(notes, "HbA1c elevated.")
	}
	if len(notes) == 0 {
		return "Within healthy ranges on all tracked items."
	}
	return strings.Join(notes, " ")
}

func answerOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

// Score computes the risk assessment for a set of answers. It has no side
// effects and never fails.
func Score(a Answers) Result {
	bmi := CalcBMI(a.HeightCm.Ptr(), a.WeightKg.Ptr())
	bmiBucket := BucketBMI(bmi)

	p := Points{
		Sleep:    sleepPoints[answerOr(a.Sleep, defaultSleep)],
		Activity: activityPoints[answerOr(a.Activity, defaultActivity)],
		Stress:   stressPoints[answerOr(a.Stress, defaultStress)],
		BMI:      bmiPoints[bmiBucket],
		HbA1c:    hba1cPoints[BucketHbA1c(a.HbA1cPct.Ptr())],
	}
	total := p.Total()
	category, action := RiskFromTotal(total)

	r := Result{
		BMI:             bmi,
		Points:          p,
		TotalScore:      total,
		RiskCategory:    category,
		SuggestedAction: action,
		Remarks:         remarks(p, bmiBucket),
	}
	if bmiBucket != "" {
		r.BMIBucket = &bmiBucket
	}
	return r
}
