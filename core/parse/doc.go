// Package parse extracts structured values from model output that was asked
// to be JSON but may not be: answers wrapped in markdown code fences,
// surrounded by prose, or carrying small syntax errors such as single quotes
// or trailing commas.
//
// [JSONAs] tries, in order, the raw text, the first fenced block, and the
// first balanced object or array, repairing each with jsonrepair before
// giving up.
package parse
