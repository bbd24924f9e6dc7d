// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tombee/reqs/internal/engine"
)

// jsonlFormatter writes one compact JSON object per line. Key order is
// lexicographic; ResponseInfo declares its fields in key order so the
// encoder preserves it.
type jsonlFormatter struct{}

func (f *jsonlFormatter) render(w io.Writer, r *engine.ResponseInfo) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
