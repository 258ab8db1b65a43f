package service

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/metazen11/ajaxCRUD/model"
)

// clientScript is the in-page half of the edit session. Pipe-format
// responses are split client-side: "error|token|previous" reverts the
// cell, "{selectbox}" reloads so the dropdown markup is rebuilt, anything
// else replaces the display fragment.
const clientScript = `<script>
function ajaxcrudEdit(t){
  document.getElementById(t+'_show').style.display='none';
  document.getElementById(t+'_edit').style.display='inline';
}
function ajaxcrudCancel(t){
  document.getElementById(t+'_edit').style.display='none';
  document.getElementById(t+'_show').style.display='inline';
}
function ajaxcrudValue(t){
  var el=document.getElementById(t+'_input');
  if(el&&el.multiple){
    var sep=el.getAttribute('data-separator')||',';
    return Array.from(el.selectedOptions).map(function(o){return o.value;}).join(sep);
  }
  if(!el){
    var radio=document.querySelector("input[name='"+t+"_input']:checked");
    return radio?radio.value:'';
  }
  return el.value;
}
function ajaxcrudPost(params,done){
  fetch(window.location.pathname,{
    method:'POST',
    headers:{'Content-Type':'application/x-www-form-urlencoded'},
    body:new URLSearchParams(params).toString()
  }).then(function(r){return r.text();}).then(done);
}
function ajaxcrudSave(t,table,field,id){
  var value=ajaxcrudValue(t);
  document.getElementById(t+'_edit').style.display='none';
  document.getElementById(t+'_save').style.display='inline';
  ajaxcrudPost({action:'update',table:table,field:field,id:id,value:value},function(text){
    document.getElementById(t+'_save').style.display='none';
    var parts=text.split('|');
    if(parts[0]==='error'){
      document.getElementById(t+'_show').innerHTML=parts[2]||'';
      document.getElementById(t+'_show').style.display='inline';
      alert('The change could not be saved.');
      return;
    }
    if(parts[1]==='{selectbox}'){window.location.reload();return;}
    document.getElementById(t+'_show').innerHTML=parts.slice(1).join('|');
    document.getElementById(t+'_show').style.display='inline';
  });
}
function ajaxcrudToggle(t,table,field,id,next){
  ajaxcrudPost({action:'update',table:table,field:field,id:id,value:next},function(text){
    if(text.indexOf('error|')===0){
      var cb=document.getElementById(t+'_input');
      cb.checked=!cb.checked;
      alert('The change could not be saved.');
    }else{window.location.reload();}
  });
}
function ajaxcrudDelete(table,id){
  if(!confirm('Delete this record?'))return false;
  ajaxcrudPost({action:'delete',table:table,id:id},function(text){
    if(text.indexOf(table+'|')===0){window.location.reload();}
    else{alert(text);}
  });
  return false;
}
function ajaxcrudCheckAll(master){
  document.querySelectorAll('.ajaxcrud-rowcheck').forEach(function(cb){cb.checked=master.checked;});
}
</script>`

const pageStyle = `<style>
.ajaxcrud-table{border-collapse:collapse}
.ajaxcrud-table th,.ajaxcrud-table td{border:1px solid #ccc;padding:4px 8px}
.ajaxcrud-show{cursor:pointer}
.ajaxcrud-saving{color:#888;font-style:italic}
.ajaxcrud-paging a{margin:0 2px}
.ajaxcrud-paging a.active{font-weight:bold}
.ajaxcrud-required{color:#c00}
.ajaxcrud-empty{color:#666}
</style>`

// RenderPage is the full-page handler for one grid: breadcrumb, grid
// markup, script and styles. The CSV export branch short-circuits before
// any HTML is written.
func (s *Service) RenderPage(ctx *gin.Context, gridName string) {
	def, err := s.LoadGridDefinition(gridName)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("page: %v", err))
		return
	}

	if ctx.Query("export") == "csv" && def.ShowCSVExport {
		if err := s.ExportCSV(ctx, def); err != nil {
			s.SomethingWentWrong(ctx, fmt.Sprintf("csv export: %v", err))
		}
		return
	}

	grid, err := s.RenderGrid(ctx, def)
	if err != nil {
		if authErr, ok := err.(*AuthorizationError); ok {
			ctx.String(http.StatusForbidden, "you do not have permission to view %s", authErr.Table)
			return
		}
		s.SomethingWentWrong(ctx, fmt.Sprintf("page: %v", err))
		return
	}

	title := def.PageTitle
	if title == "" {
		title = def.Table
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(title)))
	b.WriteString("<meta charset='utf-8'>\n")
	b.WriteString(pageStyle)
	b.WriteString("\n</head>\n<body>\n")
	b.WriteString(s.renderBreadcrumbs(def))
	b.WriteString(grid)
	b.WriteString(clientScript)
	b.WriteString("\n</body>\n</html>\n")

	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}

func (s *Service) renderBreadcrumbs(def *model.GridDefinition) string {
	title := def.PageTitle
	if title == "" {
		title = def.Table
	}
	return fmt.Sprintf("<nav class='ajaxcrud-breadcrumbs'><a href='%s'>%s</a> &raquo; %s</nav>\n",
		s.Config.BreadcrumbsRootURL,
		html.EscapeString(s.Config.BreadcrumbsRootName),
		html.EscapeString(title))
}
