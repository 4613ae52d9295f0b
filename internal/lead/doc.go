// Package lead holds the domain model for captured leads: the contact and
// estimator record shapes, the service tier and genre catalog, cost
// estimation, validation of raw form input, and the fixed set of user-facing
// outcomes a submission can end in.
//
// Collaborators that perform side effects (document stores, mail transport,
// CRM) are described here as interfaces and implemented in sibling packages.
package lead
