package models

// UnitOther is the free-text escape hatch in the unit vocabulary.
const UnitOther = "Other"

// DefaultUnits is the seed vocabulary for item units. Items may also carry
// free text when the unit is "Other".
var DefaultUnits = []string{"Each", "Box", "Kg", "Litre", "Meter", "Set", UnitOther}
