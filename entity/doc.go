// Package entity declares the persistent model: Member, Team, Item and Hello,
// their auditing columns and the query paths used to build typed queries.
package entity
