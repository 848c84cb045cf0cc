package render

import "html/template"

const styles = `
body{font-family:system-ui,-apple-system,"Segoe UI",sans-serif;margin:0;background:#f6f7fb;color:#1d2433}
header{padding:24px 32px;background:#fff;border-bottom:1px solid #e3e6ee}
h1{margin:0 0 6px;font-size:26px}
header p{margin:0;color:#56607a}
main{max-width:1100px;margin:0 auto;padding:24px 32px}
.tiles{display:flex;flex-wrap:wrap;gap:12px;margin:0 0 20px}
.tile{background:#fff;border:1px solid #e3e6ee;border-radius:8px;padding:12px 16px;min-width:130px}
.tile b{display:block;font-size:20px}
.tile span{color:#56607a;font-size:13px}
.chips{display:flex;flex-wrap:wrap;gap:8px;margin:0 0 24px}
.chip{border-radius:14px;padding:4px 12px;font-size:13px;cursor:help;border:1px solid}
.chip.critical{background:#fde8ea;border-color:#d7263d}
.chip.warning{background:#fff4e0;border-color:#f4a259}
.chip.info{background:#e8f0ff;border-color:#3a86ff}
.chip.ok{background:#e6f6f2;border-color:#2a9d8f}
section{background:#fff;border:1px solid #e3e6ee;border-radius:8px;padding:16px 20px;margin:0 0 20px}
section h2{margin:0 0 4px;font-size:19px}
section p{margin:0 0 12px;color:#56607a}
svg.chart{display:block;width:100%;height:auto}
table{border-collapse:collapse;width:100%;margin-top:12px;font-size:14px}
th,td{text-align:left;padding:6px 8px;border-bottom:1px solid #eceff5}
td.num{text-align:right;font-variant-numeric:tabular-nums}
footer{color:#9aa3b5;font-size:12px;text-align:center;padding:0 0 24px}
`

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Product Insights Dashboard</title>
<style>` + styles + `</style>
</head>
<body>
<header>
<h1>Product Analytics Dashboard</h1>
<p>Here you can explore insights about product pricing, ratings, reviews and value. Enjoy the visuals and get a quick understanding of the dataset.</p>
</header>
<main>
{{with .Report.Summary}}
<div class="tiles">
  <div class="tile"><b>{{.RecordCount}}</b><span>products</span></div>
  <div class="tile"><b>{{.TierCount}}</b><span>price tiers</span></div>
  <div class="tile"><b>{{printf "%.2f" .MeanRating}}</b><span>mean rating</span></div>
  <div class="tile"><b>{{printf "%.2f" .MedianPrice}}</b><span>median price</span></div>
  <div class="tile"><b>{{printf "%.3f" .MeanValueScore}}</b><span>mean value score</span></div>
  {{if .RejectedRows}}<div class="tile"><b>{{.RejectedRows}}</b><span>rows skipped</span></div>{{end}}
</div>
{{end}}
{{if .Insights}}
<div class="chips">
  {{range .Insights}}<span class="chip {{.Level}}" title="{{.Detail}}">{{.Title}}</span>{{end}}
</div>
{{end}}
{{range .Sections}}
<section id="{{.ID}}">
  <h2>{{.Title}}</h2>
  <p>{{.Description}}</p>
  {{.Chart}}
  {{if eq .ID "top"}}
  <p>Here are the top reviewed products:</p>
  <table>
    <thead><tr><th>Product</th><th>Tier</th><th>Price</th><th>Rating</th><th>Reviews</th><th>Value score</th><th>Stock proxy</th></tr></thead>
    <tbody>
    {{range $.Top}}
      <tr><td>{{.Name}}</td><td>{{.Tier}}</td><td class="num">{{printf "%.2f" .Price}}</td><td class="num">{{printf "%.1f" .Rating}}</td><td class="num">{{.Reviews}}</td><td class="num">{{printf "%.3f" .ValueScore}}</td><td>{{.Availability}}</td></tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
</section>
{{end}}
</main>
<footer>Report {{.Report.ID}} · generation {{.Generation}} · source {{.Report.Summary.Source}} · loaded {{.LoadedAt.Format "2006-01-02 15:04:05 UTC"}}</footer>
{{if .Live}}
<script>
(function () {
  var generation = {{.Generation}};
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws/stream");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.generation > generation) { location.reload(); }
  };
})();
</script>
{{end}}
</body>
</html>
`))

var waitingTemplate = template.Must(template.New("waiting").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5">
<title>Product Insights Dashboard</title>
<style>` + styles + `</style>
</head>
<body>
<header>
<h1>Product Analytics Dashboard</h1>
<p>The dataset has not been loaded yet. This page refreshes automatically.</p>
</header>
</body>
</html>
`))
