// Package compose locates deployment descriptors inside an install tree and
// runs the bring-up command next to them.
package compose
