// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error context and the rendered help
// catalog behind `envmod explain`.
//
// ActionableError attaches an operation, a resource and remediation
// suggestions to an underlying cause while staying compatible with
// errors.Is/As. The issue catalog maps stable names to markdown help pages
// rendered with glamour.
package issue
