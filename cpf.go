package authkit

// validCPF reports whether the string is a structurally valid CPF: eleven
// digits (punctuation tolerated), not all identical, with both check digits
// correct per the modulus-11 scheme.
func validCPF(cpf string) bool {
	digits := make([]int, 0, 11)
	for _, r := range cpf {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '-' || r == ' ':
			// tolerated formatting
		default:
			return false
		}
	}
	if len(digits) != 11 {
		return false
	}

	allSame := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	return checkDigit(digits, 9) == digits[9] && checkDigit(digits, 10) == digits[10]
}

// checkDigit computes the CPF verifier digit over the first n digits with
// weights n+1 down to 2.
func checkDigit(digits []int, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += digits[i] * (n + 1 - i)
	}
	r := (sum * 10) % 11
	if r == 10 {
		return 0
	}
	return r
}
