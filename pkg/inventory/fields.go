package inventory

// Field names one column of the fixed comparison set. The same table
// drives both change detection and the per-field old/new reporting in
// sync log entries, so the two can never drift apart.
type Field string

// The comparison set. A candidate value participates in a diff only
// when it is present (non-nil pointer, non-empty string); an absent
// candidate value never overwrites stored data.
const (
	FieldPrice         Field = "price"
	FieldMileage       Field = "mileage"
	FieldTitle         Field = "title"
	FieldFuelType      Field = "fuel_type"
	FieldTransmission  Field = "transmission"
	FieldExteriorColor Field = "exterior_color"
	FieldInteriorColor Field = "interior_color"
	FieldDrivetrain    Field = "drivetrain"
	FieldEngine        Field = "engine"
	FieldBodyStyle     Field = "body_style"
	FieldTrim          Field = "trim"
)

// Change holds the old and new value of a single compared field.
// Old is nil when the stored record had no value.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// fieldSpec binds a Field name to its accessors on Vehicle.
type fieldSpec struct {
	name   Field
	value  func(*Vehicle) (any, bool)
	assign func(*Vehicle, any)
}

func intField(name Field, get func(*Vehicle) *int, set func(*Vehicle, int)) fieldSpec {
	return fieldSpec{
		name: name,
		value: func(v *Vehicle) (any, bool) {
			p := get(v)
			if p == nil {
				return nil, false
			}
			return *p, true
		},
		assign: func(v *Vehicle, val any) {
			set(v, val.(int))
		},
	}
}

func stringField(name Field, get func(*Vehicle) string, set func(*Vehicle, string)) fieldSpec {
	return fieldSpec{
		name: name,
		value: func(v *Vehicle) (any, bool) {
			s := get(v)
			return s, s != ""
		},
		assign: func(v *Vehicle, val any) {
			set(v, val.(string))
		},
	}
}

// comparedFields is ordered; diffs and detail reports follow this order.
var comparedFields = []fieldSpec{
	intField(FieldPrice,
		func(v *Vehicle) *int { return v.Price },
		func(v *Vehicle, n int) { v.Price = &n }),
	intField(FieldMileage,
		func(v *Vehicle) *int { return v.Mileage },
		func(v *Vehicle, n int) { v.Mileage = &n }),
	stringField(FieldTitle,
		func(v *Vehicle) string { return v.Title },
		func(v *Vehicle, s string) { v.Title = s }),
	stringField(FieldFuelType,
		func(v *Vehicle) string { return v.FuelType },
		func(v *Vehicle, s string) { v.FuelType = s }),
	stringField(FieldTransmission,
		func(v *Vehicle) string { return v.Transmission },
		func(v *Vehicle, s string) { v.Transmission = s }),
	stringField(FieldExteriorColor,
		func(v *Vehicle) string { return v.ExteriorColor },
		func(v *Vehicle, s string) { v.ExteriorColor = s }),
	stringField(FieldInteriorColor,
		func(v *Vehicle) string { return v.InteriorColor },
		func(v *Vehicle, s string) { v.InteriorColor = s }),
	stringField(FieldDrivetrain,
		func(v *Vehicle) string { return v.Drivetrain },
		func(v *Vehicle, s string) { v.Drivetrain = s }),
	stringField(FieldEngine,
		func(v *Vehicle) string { return v.Engine },
		func(v *Vehicle, s string) { v.Engine = s }),
	stringField(FieldBodyStyle,
		func(v *Vehicle) string { return v.BodyStyle },
		func(v *Vehicle, s string) { v.BodyStyle = s }),
	stringField(FieldTrim,
		func(v *Vehicle) string { return v.Trim },
		func(v *Vehicle, s string) { v.Trim = s }),
}

// ComparedFields returns the comparison set in diff order.
func ComparedFields() []Field {
	fields := make([]Field, len(comparedFields))
	for i, spec := range comparedFields {
		fields[i] = spec.name
	}
	return fields
}

// FieldDiff is an ordered list of detected changes.
type FieldDiff []FieldChange

// FieldChange is one changed field with its old and new value.
type FieldChange struct {
	Field Field
	Old   any
	New   any
}

// Diff compares a candidate against an existing record over the
// comparison set. A field is changed iff the candidate supplies a value
// and it differs from the stored one; absent candidate values are
// skipped, which is what makes the merge non-destructive.
func Diff(existing, candidate *Vehicle) FieldDiff {
	var diff FieldDiff
	for _, spec := range comparedFields {
		newVal, ok := spec.value(candidate)
		if !ok {
			continue
		}
		oldVal, hadOld := spec.value(existing)
		if hadOld && oldVal == newVal {
			continue
		}
		if !hadOld {
			oldVal = nil
		}
		diff = append(diff, FieldChange{Field: spec.name, Old: oldVal, New: newVal})
	}
	return diff
}

// Apply copies every changed field's new value onto dst.
func (d FieldDiff) Apply(dst *Vehicle) {
	for _, change := range d {
		for _, spec := range comparedFields {
			if spec.name == change.Field {
				spec.assign(dst, change.New)
				break
			}
		}
	}
}

// Changes converts the diff into the map shape stored in sync log
// update details.
func (d FieldDiff) Changes() map[Field]Change {
	if len(d) == 0 {
		return nil
	}
	changes := make(map[Field]Change, len(d))
	for _, change := range d {
		changes[change.Field] = Change{Old: change.Old, New: change.New}
	}
	return changes
}

// Has reports whether the diff touches the given field.
func (d FieldDiff) Has(field Field) bool {
	for _, change := range d {
		if change.Field == field {
			return true
		}
	}
	return false
}
