// Package domain defines the core types shared across the outreach
// workflow: business records, research results, recipients, and the
// status enums that govern their lifecycles.
package domain
