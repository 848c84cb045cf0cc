// Package alerts evaluates dataset rules against every newly built report
// and delivers firing/resolved notifications to Slack, Teams or generic HTTP
// webhooks.
//
// A rule condition has the form "<field> <op> <value>", for example
// "rejected_rows > 0" or "high_availability_pct < 5". Supported operators are
// >, >=, <, <=, == and !=.
package alerts
