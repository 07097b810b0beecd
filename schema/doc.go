// Package schema provides structural record validation and the
// business-rule validation pipeline.
//
// [Validate] checks a record against a declared [Schema]: required
// fields, types, lengths, patterns, email format, and enums. Every
// violation found is collected into one [*ValidationError] — validation
// never stops at the first failure.
//
// [Pipeline] runs after structural validation: cross-field rules,
// custom validators, and context-aware async validators. Failures
// accumulate into one [*RuleError] with messages resolved through the
// locale table, then the rule level, then the pipeline default, then a
// generic fallback. A panic inside a rule is captured as a failure of
// that rule so it cannot mask the others.
package schema
