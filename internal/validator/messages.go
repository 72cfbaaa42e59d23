package validator

import (
	"fmt"
	"strings"
)

const (
	msgBlankHeaderRow = "Required headers must be defined on rows 1 and 3. Row %d is blank."
	msgHeaderErrors   = "Errors were found in the headers or values in rows 1 through 3, so the remaining rows were not evaluated."
	msgMinRows        = "The file must contain at least 4 rows: header columns, header values, data columns and at least one data row."
	msgAmbiguous      = `Required payer-specific information data element headers are missing or miscoded from the MRF that does not follow the specifications for the CSV "Tall" or CSV "Wide" format.`
)

func msgInvalidVersion(v string) string {
	return fmt.Sprintf("Invalid version %q supplied. You must use one of the supported versions: %s",
		v, strings.Join(SupportedVersions(), ", "))
}

func msgHeaderColumnMissing(col string) string {
	return fmt.Sprintf("Header column %q is miscoded or missing. You must include this header and confirm that it is encoded as specified in the data dictionary.", col)
}

func msgColumnMissing(col string) string {
	return fmt.Sprintf("Column %s is miscoded or missing from row 3. You must include this column and confirm that it is encoded as specified in the data dictionary.", col)
}

func msgDuplicateColumn(col string, row int) string {
	return fmt.Sprintf("Column %s duplicated in header. You must review and revise your column headers so that each header appears only once in row %d.", col, row+1)
}

func msgInvalidStateCode(col, code string) string {
	return fmt.Sprintf("%s includes an invalid state code %q. You must encode a valid two-letter state or territory abbreviation.", col, code)
}

func msgRequired(field, suffix string) string {
	return fmt.Sprintf("A value is required for %q%s.", field, suffix)
}

func msgAllowedValues(field, value string, allowed []string) string {
	return fmt.Sprintf("%q value %q is not one of the allowed valid values. You must encode one of these valid values: %s",
		field, value, strings.Join(allowed, ", "))
}

func msgInvalidDate(field, value string) string {
	return fmt.Sprintf("%q value %q is not in a valid format. You must encode the date using the ISO 8601 format: YYYY-MM-DD or the month/day/year format: MM/DD/YYYY, M/D/YYYY", field, value)
}

func msgPositiveNumber(field, value string) string {
	return fmt.Sprintf("%q value %q is not a positive number. You must encode a positive, non-zero, numeric value.", field, value)
}

func msgInvalidCount(field, value string) string {
	return fmt.Sprintf("%q value %q is not a valid count. You must encode 0, a whole number of 11 or greater, or %q.", field, value, countRangeToken)
}

func msgAnyOf(fields []string, suffix string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return fmt.Sprintf("At least one of %s is required%s.", strings.Join(quoted, ", "), suffix)
}

func msgSentinel(field, value string) string {
	return fmt.Sprintf("%q value %q appears to be a placeholder. Confirm that the value is an actual amount.", field, value)
}
