package enums

import "fmt"

// QualityGrade grades a sunflower harvest.
type QualityGrade string

const (
	QualityGradeA QualityGrade = "grade_a"
	QualityGradeB QualityGrade = "grade_b"
	QualityGradeC QualityGrade = "grade_c"
)

var qualityGradeLabels = map[QualityGrade]string{
	QualityGradeA: "Grade A (Premium)",
	QualityGradeB: "Grade B (Standard)",
	QualityGradeC: "Grade C (Basic)",
}

// Label returns the display name for the grade.
func (g QualityGrade) Label() string {
	return qualityGradeLabels[g]
}

// IsValid reports whether the value is a known QualityGrade.
func (g QualityGrade) IsValid() bool {
	_, ok := qualityGradeLabels[g]
	return ok
}

// ParseQualityGrade converts raw input into a QualityGrade.
func ParseQualityGrade(value string) (QualityGrade, error) {
	grade := QualityGrade(value)
	if !grade.IsValid() {
		return "", fmt.Errorf("invalid quality grade %q", value)
	}
	return grade, nil
}
