package formula

import "strings"

// Wrap returns =FN(inner), e.g. Wrap(insert, "SUM") → =SUM(insert).
func Wrap(inner, fn string) string {
	return "=" + fn + "(" + strip(inner) + ")"
}

// Binary returns =(a<op>b). Leading '=' on either operand is dropped so
// results nest.
func Binary(a, b, op string) string {
	return "=(" + strip(a) + op + strip(b) + ")"
}

// Add returns =(a+b).
func Add(a, b string) string { return Binary(a, b, "+") }

// Subtract returns =(a-b).
func Subtract(a, b string) string { return Binary(a, b, "-") }

// Multiply returns =(a*b).
func Multiply(a, b string) string { return Binary(a, b, "*") }

// Divide returns =(a/b).
func Divide(a, b string) string { return Binary(a, b, "/") }

func strip(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "=")
}
