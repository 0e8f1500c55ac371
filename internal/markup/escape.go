/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package markup

import "strings"

var (
	contentEscaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attributeEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "'", "&apos;", `"`, "&quot;")

	contentUnescaper   = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">")
	attributeUnescaper = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&apos;", "'", "&quot;", `"`)
)

// EscapeContent escapes text for use as element content.
func EscapeContent(s string) string { return contentEscaper.Replace(s) }

// EscapeAttribute escapes text for use inside a quoted attribute value.
func EscapeAttribute(s string) string { return attributeEscaper.Replace(s) }

// UnescapeContent reverses EscapeContent.
func UnescapeContent(s string) string { return contentUnescaper.Replace(s) }

// UnescapeAttribute reverses EscapeAttribute.
func UnescapeAttribute(s string) string { return attributeUnescaper.Replace(s) }
