// Copyright 2024 Yang Xie
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

package server

import (
	"html/template"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
)

const pageSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Double Pulse Test</title>
<style>
  body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4; }
  .container { max-width: 400px; margin: 0 auto; background: #fff; padding: 20px;
               border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1); }
  h2 { text-align: center; color: #333; }
  .form-group { margin-bottom: 15px; }
  .form-group label { display: block; margin-bottom: 5px; font-weight: bold; }
  .form-group input { width: 100%; padding: 8px; box-sizing: border-box;
                      border: 1px solid #ccc; border-radius: 4px; }
  .form-group input[type='submit'] { background-color: #007bff; color: white; border: none; cursor: pointer; }
  .form-group input[type='submit']:hover { background-color: #0056b3; }
  .status { text-align: center; color: #666; margin-bottom: 15px; }
</style>
</head>
<body>
<div class="container">
<h2>Double Pulse Test</h2>
<div class="status">Pulse train length: {{.TotalMicros}} &micro;s{{if .Busy}} &mdash; generating&hellip;{{end}}</div>
<form action="/set" method="post">
<div class="form-group">
<label for="p1h">Pulse 1 High (us):</label>
<input type="number" id="p1h" name="p1h" min="0" value="{{.Params.Pulse1High}}">
</div>
<div class="form-group">
<label for="p1l">Pulse 1 Low (us):</label>
<input type="number" id="p1l" name="p1l" min="0" value="{{.Params.Pulse1Low}}">
</div>
<div class="form-group">
<label for="p2h">Pulse 2 High (us):</label>
<input type="number" id="p2h" name="p2h" min="0" value="{{.Params.Pulse2High}}">
</div>
<div class="form-group">
<label for="p2l">Pulse 2 Low (us):</label>
<input type="number" id="p2l" name="p2l" min="0" value="{{.Params.Pulse2Low}}">
</div>
<div class="form-group">
<input type="submit" value="Set">
</div>
</form>
<form action="/trigger" method="get">
<div class="form-group">
<input type="submit" value="Trigger DPT">
</div>
</form>
</div>
</body>
</html>
`

var pageTemplate = template.Must(template.New("index").Parse(pageSource))

type pageData struct {
	Params model.PulseParameters
	Busy   bool
	// Humanized total duration of the configured pulse train
	TotalMicros string
}

// renderPage writes the operator page for the given parameters.
func (s *server) renderPage(c echo.Context, p model.PulseParameters) error {
	total := uint64(p.Pulse1High) + uint64(p.Pulse1Low) + uint64(p.Pulse2High) + uint64(p.Pulse2Low)
	data := pageData{
		Params:      p,
		Busy:        s.api.Busy(),
		TotalMicros: humanize.Comma(int64(total)),
	}
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return pageTemplate.Execute(c.Response(), data)
}
