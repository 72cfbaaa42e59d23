package validator

import "strings"

var (
	settings = []string{"inpatient", "outpatient", "both"}

	codeTypes = []string{
		"CPT", "NDC", "HCPCS", "RC", "ICD", "DRG", "MS-DRG", "R-DRG", "S-DRG",
		"APS-DRG", "AP-DRG", "APR-DRG", "APC", "LOCAL", "EAPG", "HIPPS", "CDT",
		"CDM", "TRIS-DRG", "CMG", "MS-LTC-DRG",
	}

	drugTypes = []string{"GR", "ME", "ML", "UN", "F2", "EA", "GM"}

	methodologies = []string{
		"case rate", "fee schedule", "percent of total billed charges",
		"per diem", "other",
	}

	booleans = []string{"true", "false"}

	stateCodes = []string{
		"AL", "AK", "AS", "AZ", "AR", "CA", "CO", "CT", "DE", "DC", "FL", "GA",
		"GU", "HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD", "MA",
		"MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ", "NM", "NY", "NC",
		"ND", "MP", "OH", "OK", "OR", "PA", "PR", "RI", "SC", "SD", "TN", "TX",
		"UT", "VT", "VI", "VA", "WA", "WV", "WI", "WY",
	}
)

// methodologyOther triggers the free-text explanation requirement.
const methodologyOther = "other"

// countRangeToken is the textual value allowed for 1 to 10 allowed amounts.
const countRangeToken = "1 through 10"

// sentinelAmount is a known placeholder encoded instead of a real amount.
const sentinelAmount = "999999999"

func oneOfFold(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
