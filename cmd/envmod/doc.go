// SPDX-License-Identifier: MPL-2.0

// Package cmd wires the envmod CLI: mounting and dismounting environment
// modules, inspecting the descriptor repository, and managing search paths
// and session parameters.
package cmd
