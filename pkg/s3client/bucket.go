package s3client

import (
	"errors"
	"strings"
)

// ValidateBucketName checks name against the S3 bucket naming rules
func ValidateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return errors.New("bucket name must be between 3 and 63 characters")
	}
	if strings.Contains(name, " ") {
		return errors.New("bucket name cannot contain spaces")
	}
	if !isDNSCompatible(name) {
		return errors.New("bucket name must be DNS compliant")
	}
	return nil
}

// isDNSCompatible allows lowercase letters, digits, hyphens and dots, and
// requires an alphanumeric first and last character
func isDNSCompatible(name string) bool {
	for _, char := range name {
		if !(char >= 'a' && char <= 'z') && !(char >= '0' && char <= '9') && char != '-' && char != '.' {
			return false
		}
	}
	return isAlnum(name[0]) && isAlnum(name[len(name)-1]) && !strings.Contains(name, "..")
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
