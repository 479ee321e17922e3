// Package language resolves user-supplied language hints into the codes the
// speech engine accepts.
//
// Inputs may be ISO 639-1 or 639-2 codes, English names, or BCP 47 tags such
// as "zh-Hant" or "pt_BR". The special value "auto" asks the engine to detect
// the spoken language itself.
package language
