// Package cedula validates Ecuadorian national identity numbers (cédulas) and
// the mobile phone numbers collected during player registration.
package cedula

import (
	"github.com/lefinal/memorama/errors"
	"regexp"
	"strconv"
)

// Length is the number of digits of a cedula.
const Length = 10

const (
	// minProvinceCode is the lowest valid province code (first two digits).
	minProvinceCode = 1
	// maxProvinceCode is the highest valid province code.
	maxProvinceCode = 24
	// maxThirdDigit is the exclusive upper bound for the third digit of natural
	// persons.
	maxThirdDigit = 6
)

// phonePattern matches mobile numbers with 10 digits, starting with 09.
var phonePattern = regexp.MustCompile(`^09\d{8}$`)

// IsValid checks the given cedula for format, province code, third digit and
// the mod-10 verifier digit.
func IsValid(id string) bool {
	return Validate(id) == nil
}

// Validate is like IsValid but returns an errors.ErrBadRequest error with kind
// errors.KindInvalidCedula describing the first failed rule.
func Validate(id string) error {
	if len(id) != Length {
		return invalid("cedula must have exactly 10 digits", id)
	}
	digits := make([]int, 0, Length)
	for _, r := range id {
		if r < '0' || r > '9' {
			return invalid("cedula must only contain digits", id)
		}
		digits = append(digits, int(r-'0'))
	}
	provinceCode, _ := strconv.Atoi(id[:2])
	if provinceCode < minProvinceCode || provinceCode > maxProvinceCode {
		return invalid("province code out of range", id)
	}
	if digits[2] >= maxThirdDigit {
		return invalid("third digit out of range", id)
	}
	if VerifierDigit(id) != digits[Length-1] {
		return invalid("verifier digit mismatch", id)
	}
	return nil
}

// VerifierDigit computes the expected verifier digit for the first nine digits
// of the given id. Digits at even positions are doubled (minus 9 when above 9),
// odd positions are added as-is. The id must consist of at least nine ASCII
// digits.
func VerifierDigit(id string) int {
	sum := 0
	for i := 0; i < Length-1; i++ {
		d := int(id[i] - '0')
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// IsValidPhone checks whether the given phone number has 10 digits and starts
// with 09.
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidatePhone is like IsValidPhone but returns an errors.ErrBadRequest error
// with kind errors.KindInvalidPhone.
func ValidatePhone(phone string) error {
	if !IsValidPhone(phone) {
		return errors.NewBadRequestError(errors.KindInvalidPhone, "phone must have 10 digits and start with 09",
			errors.Details{"phone": phone})
	}
	return nil
}

func invalid(message string, id string) error {
	return errors.NewBadRequestError(errors.KindInvalidCedula, message, errors.Details{"cedula": id})
}
