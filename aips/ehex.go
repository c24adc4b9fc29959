package aips

const ehexDigits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Ehex converts a number to the extended hex (base 36) notation the legacy
// package uses for disk area names, optionally left-padding the result to
// width with padding.
//
//	Ehex(100, 0, "")   == "2S"
//	Ehex(100, 4, "0")  == "002S"
func Ehex(num, width int, padding string) string {
	result := ""
	for num > 0 {
		result = string(ehexDigits[num%len(ehexDigits)]) + result
		num /= len(ehexDigits)
		width--
	}
	if padding != "" {
		for width > 0 {
			result = padding + result
			width--
		}
	}
	return result
}
